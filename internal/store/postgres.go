package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
)

const (
	postgresOperationTimeout = 10 * time.Second
	postgresMinReconnect     = 500 * time.Millisecond
	postgresMaxReconnect     = 30 * time.Second
	postgresPingInterval     = 90 * time.Second
)

// Postgres stores the collection in a shared table and announces batches
// with NOTIFY so subscribers on other hosts see them immediately.
type Postgres struct {
	dsn        string
	db         *sql.DB
	table      string
	channel    string
	collection string
	logger     *slog.Logger
}

func openPostgres(ctx context.Context, opts Options) (Remote, error) {
	return OpenPostgres(ctx, opts)
}

// OpenPostgres connects and creates the table when missing.
func OpenPostgres(ctx context.Context, opts Options) (*Postgres, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	p := &Postgres{
		dsn:        opts.DSN,
		db:         db,
		table:      "chromaflow_documents",
		channel:    "chromaflow_" + sanitizeIdentifier(opts.collection()),
		collection: opts.collection(),
		logger:     logging.NewComponentLogger(opts.Logger, "store.postgres"),
	}

	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			position BIGINT NOT NULL,
			item TEXT NOT NULL DEFAULT '',
			assembly TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			material TEXT NOT NULL DEFAULT '',
			length DOUBLE PRECISION NOT NULL DEFAULT 0,
			qty DOUBLE PRECISION NOT NULL DEFAULT 0,
			weight DOUBLE PRECISION NOT NULL DEFAULT 0,
			area DOUBLE PRECISION NOT NULL DEFAULT 0,
			fp TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			shop TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (collection, id)
		)`, pq.QuoteIdentifier(p.table))
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure postgres table: %w", err)
	}
	return p, nil
}

func sanitizeIdentifier(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// ListAll returns documents ordered by position.
func (p *Postgres) ListAll(ctx context.Context) ([]Document, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE collection = $1 ORDER BY position, id`,
		documentColumns, pq.QuoteIdentifier(p.table),
	), p.collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var rec items.Record
		if err := rows.Scan(
			&rec.ID, &rec.Item, &rec.Assembly, &rec.Description, &rec.Material,
			&rec.Length, &rec.Qty, &rec.Weight, &rec.Area, &rec.FP,
			&rec.Status, &rec.Shop, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, Document{ID: rec.ID, Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// BatchWrite applies the batch in one transaction and notifies listeners on
// commit.
func (p *Postgres) BatchWrite(ctx context.Context, deletes []string, upserts []items.Record) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	table := pq.QuoteIdentifier(p.table)
	if len(deletes) > 0 {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND id = ANY($2)`, table),
			p.collection, pq.Array(deletes),
		); err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
	}

	var base int64
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COALESCE(MAX(position), -1) + 1 FROM %s WHERE collection = $1`, table),
		p.collection,
	).Scan(&base); err != nil {
		return fmt.Errorf("next position: %w", err)
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (
			collection, id, position, item, assembly, description, material,
			length, qty, weight, area, fp, status, shop, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (collection, id) DO UPDATE SET
			position = EXCLUDED.position, item = EXCLUDED.item, assembly = EXCLUDED.assembly,
			description = EXCLUDED.description, material = EXCLUDED.material,
			length = EXCLUDED.length, qty = EXCLUDED.qty, weight = EXCLUDED.weight,
			area = EXCLUDED.area, fp = EXCLUDED.fp, status = EXCLUDED.status,
			shop = EXCLUDED.shop, updated_at = EXCLUDED.updated_at`, table)
	for i, rec := range upserts {
		if _, err := tx.ExecContext(ctx, upsert,
			p.collection, rec.ID, base+int64(i), rec.Item, rec.Assembly, rec.Description, rec.Material,
			rec.Length, rec.Qty, rec.Weight, rec.Area, rec.FP, rec.Status, rec.Shop, rec.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, p.channel, p.collection); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Subscribe listens on the collection channel. A reconnect or a silent
// interval both trigger a full re-read.
func (p *Postgres) Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error) {
	listener := pq.NewListener(p.dsn, postgresMinReconnect, postgresMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logging.WarnWithContext(p.logger, "postgres listener event", "subscription_error",
				logging.Error(err),
				logging.Int("listener_event", int(ev)),
				logging.String(logging.FieldErrorHint, "check database connectivity"),
				logging.String(logging.FieldImpact, "remote changes may arrive late"),
			)
		}
	})
	if err := listener.Listen(p.channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", p.channel, err)
	}

	stop := watch(ctx, func(ctx context.Context) {
		defer listener.Close()
		deliver(ctx, p.ListAll, onChange, onError)

		ticker := time.NewTicker(postgresPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Notify:
				deliver(ctx, p.ListAll, onChange, onError)
			case <-ticker.C:
				if err := listener.Ping(); err != nil && onError != nil {
					onError(fmt.Errorf("ping listener: %w", err))
				}
			}
		}
	})
	return stop, nil
}
