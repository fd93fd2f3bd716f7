package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit events to a Kafka topic so downstream compliance
// and monitoring consumers can subscribe without touching the database.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	// Idempotent: an already-existing topic is fine.
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic %q: %w", res.Topic, res.Err)
		}
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

// kafkaPayload is the JSON structure published to Kafka. Field names are part
// of the consumer contract.
type kafkaPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	GuardID   string `json:"GuardID,omitempty"`
	Action    string `json:"Action"`
	Outcome   string `json:"Outcome,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	WeaponID  string `json:"WeaponID,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
	Device    string `json:"Device,omitempty"`
	ClientIP  string `json:"ClientIP,omitempty"`
}

// Publish produces one event, keyed by guard so per-guard ordering holds.
func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		ID:        uuid.NewString(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Outcome:   event.Outcome,
		Reason:    event.Reason,
		WeaponID:  event.WeaponID,
		RequestID: event.RequestID,
		Device:    event.Device,
		ClientIP:  event.ClientIP,
	}
	if !event.GuardID.IsNil() {
		payload.GuardID = event.GuardID.String()
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(payload.GuardID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
