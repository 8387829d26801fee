package events

import (
	"context"

	"github.com/brightly-app/brightly/backend/internal/logger"
)

// StartAuditor logs every event on the bus until ctx is done.
func StartAuditor(ctx context.Context, bus *Bus, log logger.Logger) error {
	for _, topic := range Topics {
		ch, err := bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go func(topic string, ch <-chan Event) {
			for event := range ch {
				log.Info("events", topic, map[string]interface{}{
					"owner":    event.OwnerID,
					"tab":      event.Tab,
					"session":  event.SessionID,
					"messages": event.MessageCount,
				})
			}
		}(topic, ch)
	}
	return nil
}
