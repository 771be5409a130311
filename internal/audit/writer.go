package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trailkeeper/trailkeeper/internal/auditlog"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/telemetry"
)

// DefaultSystemActorLabel is the actor label of entries written by system actions
const DefaultSystemActorLabel = "Sentry"

// EntryStore persists audit entries
type EntryStore interface {
	CreateEntry(ctx context.Context, entry *models.AuditLogEntry) error
}

// TombstoneStore persists deletion tombstones
type TombstoneStore interface {
	CreateDeletedOrganization(ctx context.Context, t *models.DeletedOrganization) error
	CreateDeletedTeam(ctx context.Context, t *models.DeletedTeam) error
	CreateDeletedProject(ctx context.Context, t *models.DeletedProject) error
}

// Stores are what an entry and its tombstone are written through. Both writes of one entry go
// through the same Stores.
type Stores struct {
	Entries    EntryStore
	Tombstones TombstoneStore
}

// Transactor runs fn with Stores bound to one transaction. Writes made through them commit
// together when fn returns nil and are rolled back otherwise.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(Stores) error) error
}

type repositoryTransactor struct {
	txm *repositories.TxManager
}

// NewRepositoryTransactor runs entry writes in transactions of txm
func NewRepositoryTransactor(txm *repositories.TxManager) Transactor {
	return repositoryTransactor{txm: txm}
}

func (t repositoryTransactor) RunInTx(ctx context.Context, fn func(Stores) error) error {
	return t.txm.RunInTx(ctx, func(tx *repositories.Tx) error {
		return fn(StoresFromTx(tx))
	})
}

// StoresFromTx returns the audit stores of a repositories transaction
func StoresFromTx(tx *repositories.Tx) Stores {
	return Stores{Entries: tx.Audit, Tombstones: tx.Tombstones}
}

// Writer creates audit entries. Event codes are resolved through the registry; rendering only
// happens when an entry is shipped.
type Writer struct {
	registry         *auditlog.Registry
	tx               Transactor
	shipper          Shipper
	systemActorLabel string
	tracer           trace.Tracer
	now              func() time.Time
}

// NewWriter creates a writer whose entries are written in transactions of tx
func NewWriter(registry *auditlog.Registry, tx Transactor) *Writer {
	if registry == nil {
		registry = auditlog.Default
	}
	return &Writer{
		registry:         registry,
		tx:               tx,
		systemActorLabel: DefaultSystemActorLabel,
		tracer:           otel.Tracer("github.com/trailkeeper/trailkeeper/internal/audit"),
		now:              time.Now,
	}
}

// SetShipper attaches a destination for written entries. nil disables shipping.
func (w *Writer) SetShipper(s Shipper) {
	w.shipper = s
}

// SetSystemActorLabel overrides DefaultSystemActorLabel; an empty label is ignored
func (w *Writer) SetSystemActorLabel(label string) {
	if label != "" {
		w.systemActorLabel = truncateLabel(label)
	}
}

// Registry returns the event registry the writer validates against
func (w *Writer) Registry() *auditlog.Registry {
	return w.registry
}

// CreateAuditEntry records an action taken by the principal of req. When event is a removal of
// an organization, team or project, a tombstone is written from the snapshot in data, in the
// same transaction as the entry.
// org may be nil for actions outside any organization; targetObject may be empty.
func (w *Writer) CreateAuditEntry(ctx context.Context, req *Request, org *models.Organization, targetObject string, event int, data map[string]interface{}) (*models.AuditLogEntry, error) {
	return w.commit(ctx, w.requestEntry(req, org, targetObject, event, data), org)
}

// CreateAuditEntryTx is CreateAuditEntry for callers that own the transaction: the entry and its
// tombstone are written through s, so they commit or roll back with the audited change. The entry
// is not published; pass it to Publish once the transaction has committed.
func (w *Writer) CreateAuditEntryTx(ctx context.Context, s Stores, req *Request, org *models.Organization, targetObject string, event int, data map[string]interface{}) (*models.AuditLogEntry, error) {
	entry := w.requestEntry(req, org, targetObject, event, data)
	if _, err := w.persist(ctx, s, entry, org); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateSystemAuditEntry records an action taken by the system itself: no actor, no IP address,
// and the system actor label.
func (w *Writer) CreateSystemAuditEntry(ctx context.Context, org *models.Organization, targetObject string, event int, data map[string]interface{}) (*models.AuditLogEntry, error) {
	entry := w.newEntry(org, targetObject, event, data)
	entry.ActorLabel = w.systemActorLabel
	return w.commit(ctx, entry, org)
}

// Publish counts a committed entry and sends it to the shipper. Shipping failures are logged and
// counted, never returned.
func (w *Writer) Publish(ctx context.Context, entry *models.AuditLogEntry) {
	ev, err := w.registry.Get(entry.Event)
	if err != nil {
		return
	}
	w.publish(ctx, entry, ev)
}

func (w *Writer) requestEntry(req *Request, org *models.Organization, targetObject string, event int, data map[string]interface{}) *models.AuditLogEntry {
	entry := w.newEntry(org, targetObject, event, data)
	if req != nil {
		switch {
		case req.User != nil:
			entry.ActorID = &req.User.ID
			entry.ActorLabel = truncateLabel(req.User.DisplayLabel())
		case req.APIKey != nil:
			entry.ActorKeyID = &req.APIKey.ID
			entry.ActorLabel = truncateLabel(req.APIKey.DisplayLabel())
		}
		if req.IPAddress != "" {
			ip := req.IPAddress
			entry.IPAddress = &ip
		}
	}
	return entry
}

func (w *Writer) newEntry(org *models.Organization, targetObject string, event int, data map[string]interface{}) *models.AuditLogEntry {
	if data == nil {
		data = map[string]interface{}{}
	}
	entry := &models.AuditLogEntry{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		DateAdded: w.now().UTC(),
	}
	if org != nil {
		entry.OrganizationID = org.ID
	}
	if targetObject != "" {
		entry.TargetObject = &targetObject
	}
	return entry
}

// commit writes entry in a transaction of its own and publishes it once committed
func (w *Writer) commit(ctx context.Context, entry *models.AuditLogEntry, org *models.Organization) (*models.AuditLogEntry, error) {
	var ev *auditlog.Event
	err := w.tx.RunInTx(ctx, func(s Stores) error {
		var err error
		ev, err = w.persist(ctx, s, entry, org)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.publish(ctx, entry, ev)
	return entry, nil
}

func (w *Writer) persist(ctx context.Context, s Stores, entry *models.AuditLogEntry, org *models.Organization) (*auditlog.Event, error) {
	ctx, span := w.tracer.Start(ctx, "audit.CreateAuditEntry")
	defer span.End()

	ev, err := w.registry.Get(entry.Event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown event")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("audit.event", ev.Name),
		attribute.String("audit.organization_id", entry.OrganizationID),
		attribute.String("audit.actor_label", entry.ActorLabel),
	)

	if err := s.Entries.CreateEntry(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist entry")
		return nil, fmt.Errorf("failed to create audit entry: %w", err)
	}

	if err := writeTombstone(ctx, s.Tombstones, ev.Name, entry, org); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist tombstone")
		return nil, err
	}
	return ev, nil
}

// tombstoneKind names the tombstone written for eventName; "" when it writes none
func tombstoneKind(eventName string) string {
	switch eventName {
	case "ORG_REMOVE":
		return "organization"
	case "TEAM_REMOVE":
		return "team"
	case "PROJECT_REMOVE":
		return "project"
	}
	return ""
}

func writeTombstone(ctx context.Context, tombstones TombstoneStore, eventName string, entry *models.AuditLogEntry, org *models.Organization) error {
	kind := tombstoneKind(eventName)
	if kind == "" || tombstones == nil {
		return nil
	}

	base := models.DeletedEntry{
		ID:          uuid.New().String(),
		ActorLabel:  entry.ActorLabel,
		ActorID:     entry.ActorID,
		ActorKeyID:  entry.ActorKeyID,
		IPAddress:   entry.IPAddress,
		DateDeleted: entry.DateAdded,
		DateCreated: dataTime(entry.Data, "date_added"),
	}

	var err error
	switch kind {
	case "organization":
		err = tombstones.CreateDeletedOrganization(ctx, &models.DeletedOrganization{
			DeletedEntry: base,
			Name:         dataString(entry.Data, "name"),
			Slug:         dataString(entry.Data, "slug"),
		})
	case "team":
		t := &models.DeletedTeam{
			DeletedEntry: base,
			Name:         dataString(entry.Data, "name"),
			Slug:         dataString(entry.Data, "slug"),
		}
		t.OrganizationID, t.OrganizationName, t.OrganizationSlug = orgInfo(org)
		err = tombstones.CreateDeletedTeam(ctx, t)
	case "project":
		p := &models.DeletedProject{
			DeletedEntry: base,
			Name:         dataString(entry.Data, "name"),
			Slug:         dataString(entry.Data, "slug"),
		}
		if platform := dataString(entry.Data, "platform"); platform != "" {
			p.Platform = &platform
		}
		p.OrganizationID, p.OrganizationName, p.OrganizationSlug = orgInfo(org)
		err = tombstones.CreateDeletedProject(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("failed to create deleted %s: %w", kind, err)
	}
	return nil
}

func (w *Writer) publish(ctx context.Context, entry *models.AuditLogEntry, ev *auditlog.Event) {
	telemetry.AuditEntriesWrittenTotal.WithLabelValues(ev.Name).Inc()
	if kind := tombstoneKind(ev.Name); kind != "" {
		telemetry.AuditTombstonesWrittenTotal.WithLabelValues(kind).Inc()
	}

	if w.shipper == nil {
		return
	}
	if err := w.shipper.Ship(ctx, NewLogEntry(entry, ev)); err != nil {
		telemetry.AuditShipErrorsTotal.Inc()
		slog.Warn("failed to ship audit entry", "error", err, "entry_id", entry.ID, "event", ev.Name)
	}
}

// truncateLabel cuts label to models.ActorLabelMaxLength characters
func truncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= models.ActorLabelMaxLength {
		return label
	}
	return string([]rune(label)[:models.ActorLabelMaxLength])
}

func orgInfo(org *models.Organization) (id, name, slug *string) {
	if org == nil {
		return nil, nil, nil
	}
	return &org.ID, &org.Name, &org.Slug
}

func dataString(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// dataTime reads a timestamp stored either as time.Time or as an RFC 3339 string
func dataTime(data map[string]interface{}, key string) *time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return &v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	return nil
}
