// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// FileSystem gives access to files streamed as request bodies.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
}

// MimeResolver maps a file name to a content type.
type MimeResolver interface {
	// TypeByName returns the content type for name, or a generic binary type.
	TypeByName(name string) string
}

// -----------------------------------------------------------------------------
// Journal Ports
// -----------------------------------------------------------------------------

// Outcome classifies a completed call.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeBadRequest     Outcome = "bad_request"
	OutcomeHTTPError      Outcome = "http_error"
	OutcomeGatewayTimeout Outcome = "gateway_timeout"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeInternal       Outcome = "internal_error"
)

// CallRecord is one completed outbound call.
type CallRecord struct {
	ID        string
	Namespace string
	Function  string
	Method    string
	URL       string
	Status    int
	Outcome   Outcome
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// CallJournal persists completed calls.
type CallJournal interface {
	// Record stores a completed call.
	Record(ctx context.Context, rec CallRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]CallRecord, error)

	// Prune deletes records created before the given time and returns how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}
