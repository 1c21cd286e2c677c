// Package events exports committed audit records to an external stream so
// downstream systems can keep an independent copy of the trail.
package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"trustledger/internal/config"
	"trustledger/internal/models"
)

// Publisher delivers audit records. Delivery is best-effort.
type Publisher interface {
	PublishAuditRecord(ctx context.Context, record *models.AuditRecord) error
	Close() error
}

// AuditRecordEvent is the message value written for each record. It carries
// every hashed field, so consumers can recompute RecordHash themselves.
type AuditRecordEvent struct {
	ID         string               `json:"id"`
	EntityType string               `json:"entity_type"`
	EntityID   string               `json:"entity_id"`
	Action     string               `json:"action"`
	ActorID    string               `json:"actor_id"`
	Diff       models.CanonicalJSON `json:"diff"`
	RecordHash string               `json:"record_hash"`
	CreatedAt  string               `json:"created_at"`
}

// NewAuditRecordEvent builds the event for record. CreatedAt uses the same
// fixed layout that the hash covers.
func NewAuditRecordEvent(record *models.AuditRecord, timestampLayout string) AuditRecordEvent {
	return AuditRecordEvent{
		ID:         record.ID,
		EntityType: string(record.EntityType),
		EntityID:   record.EntityID,
		Action:     string(record.Action),
		ActorID:    record.ActorID,
		Diff:       record.Diff,
		RecordHash: record.RecordHash,
		CreatedAt:  record.CreatedAt.UTC().Format(timestampLayout),
	}
}

// KafkaPublisher writes one message per record, keyed by entity ID so all
// records for an entity land on one partition in order.
type KafkaPublisher struct {
	writer          *kafka.Writer
	timestampLayout string
}

// NewKafkaPublisher creates a synchronous writer. SASL/PLAIN over TLS is
// used when a username is set.
func NewKafkaPublisher(brokers []string, topic, username, password, timestampLayout string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
	if username != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: username, Password: password},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &KafkaPublisher{writer: w, timestampLayout: timestampLayout}
}

func (p *KafkaPublisher) PublishAuditRecord(ctx context.Context, record *models.AuditRecord) error {
	value, err := json.Marshal(NewAuditRecordEvent(record, p.timestampLayout))
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.EntityID),
		Value: value,
		Time:  record.CreatedAt,
		Headers: []kafka.Header{
			{Key: "record_hash", Value: []byte(record.RecordHash)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every record.
type NopPublisher struct{}

func (NopPublisher) PublishAuditRecord(context.Context, *models.AuditRecord) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }

// NewPublisher returns a KafkaPublisher when brokers are configured and a
// NopPublisher otherwise.
func NewPublisher(cfg *config.Config, timestampLayout string) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, cfg.KafkaUsername, cfg.KafkaPassword, timestampLayout)
}
