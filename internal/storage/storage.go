// Package storage defines the defect audit store: the server-side record
// of every gateway-level defect, keyed by correlation id. The client only
// ever sees the correlation id; the full upstream detail lives here.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no defect record exists for a key.
var ErrNotFound = errors.New("defect record not found")

// DefectRecord captures one gateway-level defect. Detail may contain a
// truncated upstream body or transport error; it is never sent to
// clients.
type DefectRecord struct {
	CorrID         string
	Classification string
	Backend        string
	RoutingSource  string
	Method         string
	Path           string
	UpstreamStatus int
	ElapsedMs      int64
	Detail         string
	CreatedAt      time.Time
}

// DefectStore persists defect records. Implementations must be safe for
// concurrent use; writes happen only on error paths, never on the
// pass-through hot path.
type DefectStore interface {
	Record(ctx context.Context, rec *DefectRecord) error
	GetByCorrID(ctx context.Context, corrID string) (*DefectRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*DefectRecord, error)
	Close() error
}

// NopStore discards all records, for deployments with storage disabled.
type NopStore struct{}

var _ DefectStore = (*NopStore)(nil)

func (*NopStore) Record(context.Context, *DefectRecord) error { return nil }

func (*NopStore) GetByCorrID(context.Context, string) (*DefectRecord, error) {
	return nil, ErrNotFound
}

func (*NopStore) ListRecent(context.Context, int) ([]*DefectRecord, error) {
	return nil, nil
}

func (*NopStore) Close() error { return nil }
