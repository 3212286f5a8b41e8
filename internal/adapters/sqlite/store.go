package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/trebuchet-org/govlock/internal/adapters/sqlite/migrations"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// EventStore is the append-only SQLite index of emitted events
type EventStore struct {
	sqlDB *sql.DB
}

// Open opens an event store at the provided path.
func Open(ctx context.Context, path string) (*EventStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &EventStore{sqlDB: sqlDB}, nil
}

// ProvideEventStore opens the index under the data directory
func ProvideEventStore(cfg *config.RuntimeConfig) (*EventStore, func(), error) {
	if err := ensureDir(cfg.DataDir); err != nil {
		return nil, nil, err
	}
	store, err := Open(context.Background(), filepath.Join(cfg.DataDir, "events.db"))
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Close closes the underlying SQLite database.
func (s *EventStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Emit appends events in one transaction
func (s *EventStore) Emit(ctx context.Context, events ...domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event transaction: %w", err)
	}
	for _, e := range events {
		attrs := "{}"
		if len(e.Attrs) > 0 {
			encoded, err := json.Marshal(e.Attrs)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("marshal event attrs: %w", err)
			}
			attrs = string(encoded)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO events (kind, surface, at, actor, subject, attrs) VALUES (?, ?, ?, ?, ?, ?)
`,
			string(e.Kind),
			string(e.Surface),
			int64(e.At),
			e.Actor.Hex(),
			e.Subject,
			attrs,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("put event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// ListEvents returns indexed events in emission order
func (s *EventStore) ListEvents(ctx context.Context, query usecase.EventQuery) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if query.Since > 0 && query.Until > 0 && query.Since > query.Until {
		return nil, fmt.Errorf("since must be before or equal to until")
	}

	var whereParts []string
	var args []any
	if len(query.Kinds) > 0 {
		placeholders := make([]string, len(query.Kinds))
		for i, k := range query.Kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		whereParts = append(whereParts, "kind IN ("+strings.Join(placeholders, ", ")+")")
	}
	if subject := strings.TrimSpace(query.Subject); subject != "" {
		whereParts = append(whereParts, "subject = ?")
		args = append(args, subject)
	}
	if query.Since > 0 {
		whereParts = append(whereParts, "at >= ?")
		args = append(args, int64(query.Since))
	}
	if query.Until > 0 {
		whereParts = append(whereParts, "at <= ?")
		args = append(args, int64(query.Until))
	}

	stmt := "SELECT kind, surface, at, actor, subject, attrs FROM events"
	if len(whereParts) > 0 {
		stmt += " WHERE " + strings.Join(whereParts, " AND ")
	}
	stmt += " ORDER BY seq"
	if query.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e              domain.Event
			kind, surface  string
			at             int64
			actor, rawAttr string
		)
		if err := rows.Scan(&kind, &surface, &at, &actor, &e.Subject, &rawAttr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.Surface = domain.Surface(surface)
		e.At = uint64(at)
		e.Actor = common.HexToAddress(actor)
		if rawAttr != "" && rawAttr != "{}" {
			if err := json.Unmarshal([]byte(rawAttr), &e.Attrs); err != nil {
				return nil, fmt.Errorf("unmarshal event attrs: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

var (
	_ usecase.EventSink       = (*EventStore)(nil)
	_ usecase.EventRepository = (*EventStore)(nil)
)
