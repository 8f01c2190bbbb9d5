// Package notifier dispatches outbound notification events. Delivery is
// fire-and-forget: correctness of the reward flow never waits on it.
package notifier

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event kinds published to the notification stream.
const (
	EventVerificationRequested = "verification_requested"
	EventRewardUnlocked        = "reward_unlocked"
)

// Event is one outbound notification. Recipient is an email address; the
// consumer decides how to render and deliver it.
type Event struct {
	Kind         string    `json:"kind"`
	Recipient    string    `json:"recipient"`
	CampaignCode string    `json:"campaign_code"`
	Token        string    `json:"token,omitempty"`
	RewardCode   string    `json:"reward_code,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier dispatches events without blocking the caller.
type Notifier interface {
	Dispatch(event Event)
}

// KafkaNotifier publishes events to a Kafka topic.
type KafkaNotifier struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaNotifier creates a notifier writing to the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

// Dispatch publishes the event in a background goroutine. Failures are
// logged and dropped.
func (n *KafkaNotifier) Dispatch(event Event) {
	go func() {
		value, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal notification event: %v", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err = n.writer.WriteMessages(ctx, kafka.Message{
			Topic: n.topic,
			Key:   []byte(event.Recipient),
			Value: value,
			Time:  time.Now(),
		})
		if err != nil {
			log.Printf("Failed to publish %s event for %s: %v", event.Kind, event.Recipient, err)
		}
	}()
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier logs events instead of publishing them. Used when no Kafka
// brokers are configured.
type LogNotifier struct{}

// Dispatch logs the event.
func (LogNotifier) Dispatch(event Event) {
	log.Printf("Notification event %s for %s (campaign %s)", event.Kind, event.Recipient, event.CampaignCode)
}
