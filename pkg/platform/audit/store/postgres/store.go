package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "trafficreg/pkg/domain"
	audit "trafficreg/pkg/platform/audit"
	txcontext "trafficreg/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are inserted by the committing ledger transaction and stay
// unpublished until the outbox relay hands them to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store backed by the ledger_events table.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, seq, category, contract, action, natural_key, actor, subject,
	token_id, request_id, attributes, occurred_at`

// Append writes an event through the operation's transaction when present.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	attrs, err := json.Marshal(event.Attributes)
	if err != nil {
		return fmt.Errorf("marshal event attributes: %w", err)
	}

	// Category is always derived from the action; the catalogue is the source of truth.
	category := audit.AuditEvent(event.Action).Category()

	query := `
		INSERT INTO ledger_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		int64(event.Seq), //nolint:gosec // ledger sequences fit in int64
		string(category),
		string(event.Contract),
		event.Action,
		event.Key,
		event.Actor,
		event.Subject,
		int64(event.TokenID), //nolint:gosec // token ids fit in int64
		event.RequestID,
		attrs,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// ListByKey returns the events recorded against one natural key in commit order.
func (s *Store) ListByKey(ctx context.Context, contract audit.Contract, key string) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ledger_events
		WHERE contract = $1 AND natural_key = $2
		ORDER BY seq, position`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, string(contract), key)
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ledger_events
		ORDER BY seq DESC, position DESC
		LIMIT $1`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Pending returns unpublished events in commit order. Rows are locked with
// SKIP LOCKED so two relays never publish the same batch concurrently.
func (s *Store) Pending(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ledger_events
		WHERE published_at IS NULL
		ORDER BY seq, position
		LIMIT $1
		FOR UPDATE SKIP LOCKED`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// MarkPublished stamps the given events as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, eventID := range ids {
		raw[i] = eventID.String()
	}
	query := `UPDATE ledger_events SET published_at = now() WHERE id = ANY($1::uuid[])`
	if _, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark events published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			seq      int64
			tokenID  int64
			category string
			contract string
			attrs    []byte
		)
		err := rows.Scan(
			&event.ID,
			&seq,
			&category,
			&contract,
			&event.Action,
			&event.Key,
			&event.Actor,
			&event.Subject,
			&tokenID,
			&event.RequestID,
			&attrs,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		event.Seq = uint64(seq)
		event.TokenID = id.TokenID(tokenID)
		event.Category = audit.EventCategory(category)
		event.Contract = audit.Contract(contract)
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &event.Attributes); err != nil {
				return nil, fmt.Errorf("decode event attributes: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger events: %w", err)
	}
	return events, nil
}
