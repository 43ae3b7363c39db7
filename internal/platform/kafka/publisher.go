// Package kafka publishes committed ledger events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"trafficreg/internal/platform/config"
	"trafficreg/pkg/platform/audit"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher writes events as JSON records keyed by contract and natural
// key, so every record of one credential lands on the same partition.
type Publisher struct {
	client producer
	topic  string
	logger *slog.Logger
	close  func()
}

// Message is the record value.
type Message struct {
	ID         string            `json:"id"`
	Seq        uint64            `json:"seq"`
	Category   string            `json:"category"`
	Contract   string            `json:"contract"`
	Action     string            `json:"action"`
	Key        string            `json:"key"`
	Actor      string            `json:"actor"`
	Subject    string            `json:"subject,omitempty"`
	TokenID    uint64            `json:"token_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// New connects to the configured brokers and, when CreateTopics is set,
// creates the event topic if it does not exist yet.
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: ping brokers: %w", err)
	}
	if cfg.CreateTopics {
		if err := ensureTopic(ctx, kadm.NewClient(client), cfg); err != nil {
			client.Close()
			return nil, err
		}
	}
	return &Publisher{client: client, topic: cfg.Topic, logger: logger, close: client.Close}, nil
}

func ensureTopic(ctx context.Context, adm *kadm.Client, cfg config.KafkaConfig) error {
	resps, err := adm.CreateTopics(ctx, cfg.Partitions, cfg.Replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, err)
	}
	for _, r := range resps {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces the batch synchronously and fails if any record was
// not acknowledged.
func (p *Publisher) Publish(ctx context.Context, events []audit.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		r, err := p.record(e)
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce %d events: %w", len(records), err)
	}
	p.logger.DebugContext(ctx, "events published", "topic", p.topic, "count", len(records))
	return nil
}

func (p *Publisher) record(e audit.Event) (*kgo.Record, error) {
	m := Message{
		ID:         e.ID.String(),
		Seq:        e.Seq,
		Category:   string(e.Category),
		Contract:   string(e.Contract),
		Action:     e.Action,
		Key:        e.Key,
		Actor:      e.Actor.Hex(),
		TokenID:    uint64(e.TokenID),
		RequestID:  e.RequestID,
		Attributes: e.Attributes,
		Timestamp:  e.Timestamp,
	}
	if !e.Subject.IsZero() {
		m.Subject = e.Subject.Hex()
	}
	value, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("kafka: encode event %s: %w", e.ID, err)
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(string(e.Contract) + "/" + e.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(e.Action)},
			{Key: "seq", Value: []byte(strconv.FormatUint(e.Seq, 10))},
		},
	}, nil
}

func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}
