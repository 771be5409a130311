// Package audit writes audit log entries and their deletion tombstones, and forwards every
// written entry to external destinations.
//
// Persisted entries are the source of truth and are queried for the organization audit log.
// Shipping is a best-effort copy for SIEM and log aggregation pipelines: a destination that is
// down never fails the action being audited.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trailkeeper/trailkeeper/internal/auditlog"
	"github.com/trailkeeper/trailkeeper/internal/config"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// LogEntry is the shipped form of an audit entry, with the rendered message attached
type LogEntry struct {
	Timestamp      time.Time              `json:"timestamp"`
	EntryID        string                 `json:"entry_id"`
	Event          string                 `json:"event"`
	EventID        int                    `json:"event_id"`
	Message        string                 `json:"message"`
	ActorLabel     string                 `json:"actor_label"`
	ActorID        string                 `json:"actor_id,omitempty"`
	ActorKeyID     string                 `json:"actor_key_id,omitempty"`
	OrganizationID string                 `json:"organization_id,omitempty"`
	TargetObject   string                 `json:"target_object,omitempty"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// NewLogEntry builds the shipped form of entry
func NewLogEntry(entry *models.AuditLogEntry, ev *auditlog.Event) *LogEntry {
	return &LogEntry{
		Timestamp:      entry.DateAdded,
		EntryID:        entry.ID,
		Event:          ev.Name,
		EventID:        ev.ID,
		Message:        ev.Render(entry),
		ActorLabel:     entry.ActorLabel,
		ActorID:        deref(entry.ActorID),
		ActorKeyID:     deref(entry.ActorKeyID),
		OrganizationID: entry.OrganizationID,
		TargetObject:   deref(entry.TargetObject),
		IPAddress:      deref(entry.IPAddress),
		Data:           entry.Data,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Shipper forwards audit entries to one destination
type Shipper interface {
	Ship(ctx context.Context, entry *LogEntry) error
	Close() error
}

// ShipperConfig selects and configures one destination
type ShipperConfig struct {
	Enabled bool
	Type    string // webhook, file, kafka
	Webhook *WebhookConfig
	File    *FileConfig
	Kafka   *KafkaConfig
}

// ShipperConfigsFromConfig converts the application audit configuration
func ShipperConfigsFromConfig(cfg config.AuditConfig) []ShipperConfig {
	out := make([]ShipperConfig, 0, len(cfg.Shippers))
	for _, s := range cfg.Shippers {
		sc := ShipperConfig{Enabled: s.Enabled, Type: s.Type}
		if s.Webhook != nil {
			sc.Webhook = &WebhookConfig{
				URL:           s.Webhook.URL,
				Headers:       s.Webhook.Headers,
				Timeout:       time.Duration(s.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     s.Webhook.BatchSize,
				FlushInterval: time.Duration(s.Webhook.FlushInterval) * time.Second,
			}
		}
		if s.File != nil {
			sc.File = &FileConfig{Path: s.File.Path, MaxSizeMB: s.File.MaxSizeMB, MaxBackups: s.File.MaxBackups}
		}
		if s.Kafka != nil {
			sc.Kafka = &KafkaConfig{Brokers: s.Kafka.Brokers, Topic: s.Kafka.Topic}
		}
		out = append(out, sc)
	}
	return out
}

// MultiShipper fans out to every configured destination
type MultiShipper struct {
	shippers []Shipper
	mu       sync.RWMutex
}

// NewMultiShipper creates the enabled shippers in configs
func NewMultiShipper(configs []ShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{shippers: make([]Shipper, 0, len(configs))}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var shipper Shipper
		var err error

		switch cfg.Type {
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook shipper")
			}
			shipper, err = NewWebhookShipper(cfg.Webhook)
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file shipper")
			}
			shipper, err = NewFileShipper(cfg.File)
		case "kafka":
			if cfg.Kafka == nil {
				return nil, fmt.Errorf("kafka config is required for kafka shipper")
			}
			shipper, err = NewKafkaShipper(cfg.Kafka)
		default:
			return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}

		if err != nil {
			_ = ms.Close()
			return nil, fmt.Errorf("failed to create %s shipper: %w", cfg.Type, err)
		}
		ms.shippers = append(ms.shippers, shipper)
	}

	return ms, nil
}

// Add registers an already-built shipper
func (ms *MultiShipper) Add(s Shipper) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.shippers = append(ms.shippers, s)
}

// Len returns the number of active destinations
func (ms *MultiShipper) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.shippers)
}

// Ship sends entry to every destination and returns the last error seen
func (ms *MultiShipper) Ship(ctx context.Context, entry *LogEntry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var lastErr error
	for _, shipper := range ms.shippers {
		if err := shipper.Ship(ctx, entry); err != nil {
			lastErr = err
			slog.Warn("audit shipper failed", "error", err, "event", entry.Event)
		}
	}
	return lastErr
}

// Close closes all destinations
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, shipper := range ms.shippers {
		if err := shipper.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
