package messaging

import (
	"context"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// Publisher defines the interface for publishing registration events to a message bus
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishRegistration publishes a sealed registration event
	PublishRegistration(ctx context.Context, ev domain.RegistrationEvent) error
	// Close closes the connection
	Close()
}
