// Package status broadcasts booking lifecycle state to the live-status
// display surface.
package status

import (
	"context"
	"time"

	"velorent/internal/domain"
	"velorent/internal/events"
	"velorent/internal/metrics"
	"velorent/internal/models"

	"github.com/rs/zerolog"
)

// Publisher fans a status change out to the event bus and stores the
// current display payload. Delivery is best effort and at-least-once;
// the display is not safety-critical.
type Publisher struct {
	eventBus domain.EventPublisher
	store    domain.StatusRepository
	logger   *zerolog.Logger
}

func NewPublisher(eventBus domain.EventPublisher, store domain.StatusRepository, logger *zerolog.Logger) *Publisher {
	return &Publisher{
		eventBus: eventBus,
		store:    store,
		logger:   logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, booking *models.Booking, status string) error {
	payload := events.RentalEventPayload{
		BookingID:     booking.ID,
		BookingNumber: booking.BookingNumber,
		RenterID:      booking.RenterID,
		BikeID:        booking.BikeID,
		BookingItems:  booking.Items(),
		Status:        status,
		StartTime:     booking.StartTime,
		EndTime:       booking.EndTime,
	}

	eventType := events.EventRentalStarted
	if status == models.RentalEnded {
		eventType = events.EventRentalEnded
	}

	if p.eventBus != nil {
		if err := p.eventBus.PublishJSON(eventType, payload); err != nil {
			p.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("status", status).Msg("publish event error")
		}
	}

	if p.store != nil {
		err := p.store.SetStatus(ctx, &models.RentalStatus{
			BookingID:     booking.ID,
			BookingNumber: booking.BookingNumber,
			BookingItems:  booking.Items(),
			Status:        status,
			UpdatedAt:     time.Now().UTC(),
		})
		if err != nil {
			return err
		}
	}

	metrics.IncStatusPublish(status)
	return nil
}
