package messaging

import (
	"context"
	"errors"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// ErrDiscard tells a subscriber to drop a message without redelivery
var ErrDiscard = errors.New("discard message")

// EventHandler processes one registration event.
// A nil error acknowledges the message; an error wrapping ErrDiscard drops it;
// any other error asks for redelivery.
type EventHandler func(ctx context.Context, ev *domain.RegistrationEvent) error

// Subscriber delivers registration events from a message bus in publication order
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// Subscribe blocks, handling events until ctx is cancelled
	Subscribe(ctx context.Context, handler EventHandler) error
	// Close closes the connection and cleans up resources
	Close()
}
