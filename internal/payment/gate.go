// Package payment gates booking persistence on a successful external
// payment authorization.
package payment

import (
	"context"
	"errors"
	"fmt"

	"velorent/internal/database"
	"velorent/internal/domain"
	"velorent/internal/models"

	"github.com/rs/zerolog"
)

// State of the authorization gate. Persisted and Declined are terminal;
// a fresh rental attempt starts a new gate.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingAuthorization State = "awaiting_authorization"
	StateAuthorized            State = "authorized"
	StatePersisted             State = "persisted"
	StateDeclined              State = "declined"
)

var ErrInvalidTransition = errors.New("invalid payment gate transition")

// Gate is a single-use state machine for one booking attempt.
type Gate struct {
	provider domain.PaymentProvider
	store    BookingStore
	logger   *zerolog.Logger

	state         State
	declineReason error
	paymentRef    string
}

// BookingStore is the narrow persistence contract the gate needs. The
// implementation must re-validate availability atomically with the write.
type BookingStore interface {
	CreateBookingIfAvailable(ctx context.Context, booking *models.Booking) error
}

func NewGate(provider domain.PaymentProvider, store BookingStore, logger *zerolog.Logger) *Gate {
	return &Gate{
		provider: provider,
		store:    store,
		logger:   logger,
		state:    StateIdle,
	}
}

func (g *Gate) State() State { return g.state }

// DeclineReason reports why the gate reached Declined: either
// database.ErrPaymentDeclined or database.ErrSlotTaken.
func (g *Gate) DeclineReason() error { return g.declineReason }

// PaymentRef is the provider's reference for a successful authorization.
func (g *Gate) PaymentRef() string { return g.paymentRef }

// RequestAuthorization moves Idle -> AwaitingAuthorization and asks the
// provider for a one-shot authorization. Success lands in Authorized,
// failure in Declined.
func (g *Gate) RequestAuthorization(ctx context.Context, amountCents int64, currency, description string) error {
	if g.state != StateIdle {
		return fmt.Errorf("%w: request authorization from %s", ErrInvalidTransition, g.state)
	}
	g.state = StateAwaitingAuthorization

	auth, err := g.provider.Authorize(ctx, amountCents, currency, description)
	if err != nil {
		g.decline(database.ErrPaymentDeclined)
		g.logger.Error().Err(err).Int64("amount_cents", amountCents).Msg("payment provider error")
		return database.ErrPaymentDeclined
	}
	if !auth.Approved {
		g.decline(database.ErrPaymentDeclined)
		return database.ErrPaymentDeclined
	}

	g.state = StateAuthorized
	g.paymentRef = auth.Reference
	return nil
}

// Persist moves Authorized -> Persisted by writing the booking. The store
// re-validates availability against the latest booking set inside its
// transaction; a conflict declines the gate with ErrSlotTaken. Any other
// write failure after captured payment is ErrPersistenceFailure and must
// be surfaced loudly, never retried blindly.
func (g *Gate) Persist(ctx context.Context, booking *models.Booking) error {
	if g.state != StateAuthorized {
		return fmt.Errorf("%w: persist from %s", ErrInvalidTransition, g.state)
	}

	booking.PaymentRef = g.paymentRef
	err := g.store.CreateBookingIfAvailable(ctx, booking)
	if errors.Is(err, database.ErrSlotTaken) {
		g.decline(database.ErrSlotTaken)
		return database.ErrSlotTaken
	}
	if err != nil {
		g.logger.Error().Err(err).
			Str("payment_ref", g.paymentRef).
			Str("renter_id", booking.RenterID).
			Str("bike_id", booking.BikeID).
			Msg("booking write failed after captured payment, manual refund required")
		return fmt.Errorf("%w: %w", database.ErrPersistenceFailure, err)
	}

	g.state = StatePersisted
	return nil
}

func (g *Gate) decline(reason error) {
	g.state = StateDeclined
	g.declineReason = reason
}
