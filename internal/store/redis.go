package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
)

// Redis keeps documents as JSON in a hash, their order in a sorted set, and
// publishes a message on every batch.
type Redis struct {
	rdb      *redis.Client
	docsKey  string
	orderKey string
	seqKey   string
	channel  string
	logger   *slog.Logger
}

func openRedis(ctx context.Context, opts Options) (Remote, error) {
	redisOpts, err := redis.ParseURL(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis dsn: %w", err)
	}
	r := NewRedis(redis.NewClient(redisOpts), opts)
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		_ = r.rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return r, nil
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, opts Options) *Redis {
	prefix := "chromaflow:" + opts.collection()
	return &Redis{
		rdb:      rdb,
		docsKey:  prefix + ":docs",
		orderKey: prefix + ":order",
		seqKey:   prefix + ":seq",
		channel:  prefix + ":changes",
		logger:   logging.NewComponentLogger(opts.Logger, "store.redis"),
	}
}

// Close closes the client.
func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// ListAll reads the order and the documents in one transaction.
func (r *Redis) ListAll(ctx context.Context) ([]Document, error) {
	var (
		orderCmd *redis.StringSliceCmd
		docsCmd  *redis.MapStringStringCmd
	)
	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		orderCmd = pipe.ZRange(ctx, r.orderKey, 0, -1)
		docsCmd = pipe.HGetAll(ctx, r.docsKey)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	order := orderCmd.Val()
	raw := docsCmd.Val()

	docs := make([]Document, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	appendDoc := func(id string) {
		payload, ok := raw[id]
		if !ok {
			return
		}
		seen[id] = struct{}{}
		var rec items.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			logging.WarnWithContext(r.logger, "skipping unreadable document", "document_decode_failed",
				logging.String("document_id", id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the hash entry with redis-cli HGET"),
				logging.String(logging.FieldImpact, "item is hidden until fixed"),
			)
			return
		}
		if rec.ID == "" {
			rec.ID = id
		}
		docs = append(docs, Document{ID: id, Record: rec})
	}
	for _, id := range order {
		appendDoc(id)
	}
	var orphans []string
	for id := range raw {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		appendDoc(id)
	}
	return docs, nil
}

// BatchWrite applies the batch inside MULTI/EXEC and publishes a change
// message in the same transaction.
func (r *Redis) BatchWrite(ctx context.Context, deletes []string, upserts []items.Record) error {
	payloads := make([]any, 0, len(upserts)*2)
	for _, rec := range upserts {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.ID, err)
		}
		payloads = append(payloads, rec.ID, string(data))
	}

	var base int64
	if len(upserts) > 0 {
		end, err := r.rdb.IncrBy(ctx, r.seqKey, int64(len(upserts))).Result()
		if err != nil {
			return fmt.Errorf("allocate positions: %w", err)
		}
		base = end - int64(len(upserts))
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(deletes) > 0 {
			members := make([]any, len(deletes))
			for i, id := range deletes {
				members[i] = id
			}
			pipe.HDel(ctx, r.docsKey, deletes...)
			pipe.ZRem(ctx, r.orderKey, members...)
		}
		if len(upserts) > 0 {
			pipe.HSet(ctx, r.docsKey, payloads...)
			scored := make([]redis.Z, len(upserts))
			for i, rec := range upserts {
				scored[i] = redis.Z{Score: float64(base + int64(i)), Member: rec.ID}
			}
			pipe.ZAdd(ctx, r.orderKey, scored...)
		}
		pipe.Publish(ctx, r.channel, "batch")
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Subscribe re-reads the collection on every published change.
func (r *Redis) Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	stop := watch(ctx, func(ctx context.Context) {
		defer pubsub.Close()
		messages := pubsub.Channel()
		deliver(ctx, r.ListAll, onChange, onError)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				deliver(ctx, r.ListAll, onChange, onError)
			}
		}
	})
	return stop, nil
}
