package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig configures the Kafka destination
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaShipper produces each entry as one record keyed by organization
type KafkaShipper struct {
	client *kgo.Client
	topic  string
}

// NewKafkaShipper creates a producer client. Brokers are contacted lazily on first produce.
func NewKafkaShipper(cfg *KafkaConfig) (*KafkaShipper, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaShipper{client: client, topic: cfg.Topic}, nil
}

// Ship produces entry synchronously
func (ks *KafkaShipper) Ship(ctx context.Context, entry *LogEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	record := &kgo.Record{Topic: ks.topic, Key: []byte(entry.OrganizationID), Value: value}
	if err := ks.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce audit entry: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the client
func (ks *KafkaShipper) Close() error {
	ks.client.Close()
	return nil
}
