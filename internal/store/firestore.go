package store

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
)

// Firestore keeps each item as a document in a Cloud Firestore collection.
type Firestore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

func openFirestore(ctx context.Context, opts Options) (Remote, error) {
	return OpenFirestore(ctx, opts)
}

// OpenFirestore initializes a Firebase app for the configured project. The
// project comes from opts.ProjectID or the DSN host; credentials come from
// opts.CredentialsFile or the ambient Google application credentials.
func OpenFirestore(ctx context.Context, opts Options) (*Firestore, error) {
	projectID := opts.ProjectID
	if projectID == "" {
		projectID = dsnHost(opts.DSN)
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return &Firestore{
		client:     client,
		collection: opts.collection(),
		logger:     logging.NewComponentLogger(opts.Logger, "store.firestore"),
	}, nil
}

func (f *Firestore) ref() *firestore.CollectionRef {
	return f.client.Collection(f.collection)
}

// Close releases the client.
func (f *Firestore) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// ListAll reads every document, ordered by document id.
func (f *Firestore) ListAll(ctx context.Context) ([]Document, error) {
	snaps, err := f.ref().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return f.decode(snaps), nil
}

func (f *Firestore) decode(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		var rec items.Record
		if err := snap.DataTo(&rec); err != nil {
			logging.WarnWithContext(f.logger, "skipping unreadable document", "document_decode_failed",
				logging.String("document_id", snap.Ref.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the document in the Firebase console"),
				logging.String(logging.FieldImpact, "item is hidden until fixed"),
			)
			continue
		}
		if rec.ID == "" {
			rec.ID = snap.Ref.ID
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Record: rec})
	}
	return docs
}

// BatchWrite commits every delete and upsert in a single transaction.
func (f *Firestore) BatchWrite(ctx context.Context, deletes []string, upserts []items.Record) error {
	col := f.ref()
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range deletes {
			if err := tx.Delete(col.Doc(id)); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}
		for _, rec := range upserts {
			if err := tx.Set(col.Doc(rec.ID), rec); err != nil {
				return fmt.Errorf("set %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Subscribe streams query snapshots. A stream error is reported once and
// ends the subscription; callers decide whether to subscribe again.
func (f *Firestore) Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error) {
	stop := watch(ctx, func(ctx context.Context) {
		it := f.ref().Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && onError != nil {
					onError(fmt.Errorf("snapshot stream: %w", err))
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				if ctx.Err() == nil && onError != nil {
					onError(fmt.Errorf("read snapshot: %w", err))
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if onChange != nil {
				onChange(f.decode(docs))
			}
		}
	})
	return stop, nil
}
