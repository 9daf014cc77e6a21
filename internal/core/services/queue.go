package services

import (
	"context"
	"time"
)

// Message is a unit of background work. Key carries the project uuid so a
// subscriber can scope itself to one project; messages for one key are
// delivered in publish order.
type Message struct {
	MessageID string
	Topic     string
	Key       string
	Payload   []byte
	DeliverAt time.Time
}

type MessageHandler func(ctx context.Context, msg Message) error

type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, subscriptionID string, topic string, key string, handler MessageHandler) error
	Unsubscribe(subscriptionID string) error
}
