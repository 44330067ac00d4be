package domain

import (
	"context"
	"time"
)

// ObjectStore is the blob-store contract the pipeline depends on. The
// production implementation is MinIO; tests use an in-memory fake.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]string, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	EnsureBucket(ctx context.Context, bucket string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	ListObjects(ctx context.Context, bucket string) ([]string, error)
}

// BulkFS is the bulk-filesystem contract used by the replication stage. It
// is an outward, overwrite-only sink; no pipeline stage reads from it.
type BulkFS interface {
	Exists(path string) (bool, error)
	MkdirAll(path string) error
	WriteFile(path string, data []byte, overwrite bool) error
}

// StageEvent describes the completion (or failure) of one pipeline stage,
// published to the optional notifier sink.
type StageEvent struct {
	RunID    string    `json:"run_id"`
	Stage    string    `json:"stage"`
	Status   string    `json:"status"` // "completed", "failed", "warning"
	RowsIn   int       `json:"rows_in,omitempty"`
	RowsOut  int       `json:"rows_out,omitempty"`
	Error    string    `json:"error,omitempty"`
	Duration string    `json:"duration"`
	At       time.Time `json:"at"`
}

// StageNotifier publishes stage events to an external audience. A nil
// notifier disables publication.
type StageNotifier interface {
	NotifyStage(ctx context.Context, event StageEvent) error
}
