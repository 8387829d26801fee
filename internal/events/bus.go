// Package events publishes domain notifications about conversations over an
// in-process watermill pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

const (
	TopicSessionPersisted = "chat.session.persisted"
	TopicSessionCleared   = "chat.session.cleared"
	TopicMemoryUpdated    = "chat.memory.updated"
)

// Topics lists every topic the bus carries.
var Topics = []string{TopicSessionPersisted, TopicSessionCleared, TopicMemoryUpdated}

// Event is the payload of every topic.
type Event struct {
	OwnerID      string    `json:"ownerId"`
	Tab          tab.ID    `json:"tabType"`
	SessionID    string    `json:"sessionId,omitempty"`
	MessageCount int       `json:"messageCount,omitempty"`
	Note         string    `json:"note,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(topic string, event Event) error
}

// Bus is a Publisher backed by a gochannel pub/sub.
type Bus struct {
	pubSub *gochannel.GoChannel
}

// NewBus creates a bus. Messages published while nobody subscribes are dropped.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

func (b *Bus) Publish(topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return b.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe delivers decoded events of topic until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				// malformed payloads are acked so they are not redelivered
				msg.Ack()
				continue
			}
			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the pub/sub down and ends every subscription.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(string, Event) error { return nil }
