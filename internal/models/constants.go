package models

import "time"

const (
	// Booking lifecycle statuses persisted in storage.
	StatusActive    = "active"
	StatusCompleted = "completed"

	// Live rental statuses broadcast to the status display.
	RentalStarted = "started"
	RentalEnded   = "ended"
)

const (
	// DefaultStatusTTL время жизни live-статуса в Redis
	DefaultStatusTTL = 24 * time.Hour

	// DefaultMaxBookingDays максимальный горизонт бронирования
	DefaultMaxBookingDays = 365

	// DefaultHelmetFeeCents фиксированная надбавка за шлем
	DefaultHelmetFeeCents = 200

	// DefaultCurrency валюта платежей по умолчанию
	DefaultCurrency = "usd"

	// RateLimitAttempts количество попыток бронирования в окне
	RateLimitAttempts = 10

	// RateLimitWindow окно ограничения частоты попыток
	RateLimitWindow = 60 // 1 минута в секундах

	// WorkerPollInterval интервал опроса завершившихся аренд
	WorkerPollInterval = 30 // секунды
)
