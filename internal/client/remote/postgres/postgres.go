// Package postgres implements remote.DocumentStore on PostgreSQL.
//
// Documents live in one JSONB column and are merged with the jsonb ||
// operator, which replaces top-level keys only; fields arrive flattened, so
// that is a field-level merge. Every write notifies the channel of its scope
// inside the same transaction and watchers LISTEN on a dedicated pgx
// connection, so a watcher only hears about its own scope.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/dbx"
	"github.com/dmitrijs2005/mindshift/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// channelPrefix starts the LISTEN/NOTIFY channel of every scope.
const channelPrefix = "mindshift_documents_"

// Postgres rejects NOTIFY payloads of 8000 bytes or more. Larger changes are
// announced without fields and the watcher reads the document instead.
const maxNotifyPayload = 7900

//go:embed migrations/*.sql
var embedMigrations embed.FS

// listenConn is the part of *pgx.Conn a watcher needs.
type listenConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type notification struct {
	Scope  string        `json:"scope"`
	DocID  string        `json:"docId"`
	Fields remote.Fields `json:"fields,omitempty"`
}

type Store struct {
	db     *sql.DB
	listen func(ctx context.Context) (listenConn, error)
	logger logging.Logger
}

var _ remote.DocumentStore = (*Store)(nil)

// New wraps an open database. Watchers connect to dsn on their own.
func New(db *sql.DB, dsn string, logger logging.Logger) *Store {
	return &Store{
		db: db,
		listen: func(ctx context.Context) (listenConn, error) {
			return pgx.Connect(ctx, dsn)
		},
		logger: logger.With("component", "remote.postgres"),
	}
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return New(db, dsn, logger), nil
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (s *Store) Write(ctx context.Context, scope, docID string, fields remote.Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	payload, err := notifyPayload(scope, docID, fields)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			INSERT INTO documents (scope, doc_id, fields, updated_at)
			VALUES ($1, $2, $3::jsonb, now())
			ON CONFLICT (scope, doc_id)
			DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = now()
		`
		if _, err := tx.ExecContext(ctx, query, scope, docID, string(raw)); err != nil {
			return fmt.Errorf("failed to upsert document %s/%s: %w", scope, docID, err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel(scope), payload); err != nil {
			return fmt.Errorf("failed to notify: %w", err)
		}
		return nil
	})
}

func (s *Store) Read(ctx context.Context, scope, docID string) (remote.Fields, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE scope = $1 AND doc_id = $2`, scope, docID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", scope, docID, err)
	}

	var f remote.Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", scope, docID, err)
	}
	return f, nil
}

// List returns every document of scope, oldest update first.
func (s *Store) List(ctx context.Context, scope string) ([]remote.Change, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, fields FROM documents WHERE scope = $1 ORDER BY updated_at, doc_id`, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []remote.Change
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var f remote.Fields
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", scope, id, err)
		}
		out = append(out, remote.Change{DocID: id, Fields: f})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch starts listening before taking the snapshot, so no write committed
// after the snapshot is missed. A write may be delivered twice; applying a
// change is idempotent.
func (s *Store) Watch(ctx context.Context, scope string) (<-chan remote.Change, error) {
	conn, err := s.listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("listen connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifyChannel(scope)}.Sanitize()); err != nil {
		closeConn(conn)
		return nil, fmt.Errorf("listen: %w", err)
	}

	snapshot, err := s.List(ctx, scope)
	if err != nil {
		closeConn(conn)
		return nil, err
	}

	out := make(chan remote.Change)
	go s.watch(ctx, conn, scope, snapshot, out)
	return out, nil
}

func (s *Store) watch(ctx context.Context, conn listenConn, scope string, snapshot []remote.Change, out chan<- remote.Change) {
	defer close(out)
	defer closeConn(conn)

	for _, c := range snapshot {
		select {
		case out <- c:
		case <-ctx.Done():
			return
		}
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn(ctx, "listen connection lost",
					"scope", scope, "error", fmt.Errorf("%w: %w", common.ErrSubscriptionDropped, err))
			}
			return
		}

		var msg notification
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			s.logger.Debug(ctx, "ignoring notification", "payload", n.Payload, "error", err)
			continue
		}
		// Distinct scopes can hash to one channel.
		if msg.Scope != scope {
			continue
		}
		if msg.Fields == nil {
			f, err := s.Read(ctx, scope, msg.DocID)
			if err != nil {
				s.logger.Warn(ctx, "read announced document", "doc", msg.DocID, "error", err)
				continue
			}
			msg.Fields = f
		}

		select {
		case out <- remote.Change{DocID: msg.DocID, Fields: msg.Fields}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// notifyChannel names the channel of scope. Identities are opaque and may be
// longer than a Postgres identifier, so the name carries a hash of the scope.
func notifyChannel(scope string) string {
	return fmt.Sprintf("%s%016x", channelPrefix, xxhash.Sum64String(scope))
}

func notifyPayload(scope, docID string, fields remote.Fields) (string, error) {
	raw, err := json.Marshal(notification{Scope: scope, DocID: docID, Fields: fields})
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	if len(raw) < maxNotifyPayload {
		return string(raw), nil
	}
	raw, err = json.Marshal(notification{Scope: scope, DocID: docID})
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	return string(raw), nil
}

func closeConn(conn listenConn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}
