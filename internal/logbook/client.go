package logbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/wesm/ologbrowse/internal/search"
)

// Client is the log-service boundary used by the browsing core.
// Implementations: remote.Client (HTTP) and logbooktest.MockClient.
type Client interface {
	// SearchLogs returns one page of entries matching the criteria, in the
	// order chosen by the service.
	SearchLogs(ctx context.Context, criteria search.Criteria, page search.PageParams) (*SearchResult, error)

	// GetEntry fetches a single entry. A missing entry yields an error
	// matching ErrNotFound.
	GetEntry(ctx context.Context, id string) (*LogEntry, error)

	// ListLogbooks and ListTags return the names available for filtering.
	ListLogbooks(ctx context.Context) ([]string, error)
	ListTags(ctx context.Context) ([]string, error)
}

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("log entry not found")

// ServiceError is a non-success HTTP response from the log service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("log service error (%d): %s", e.StatusCode, e.Message)
}

// ErrorKind classifies a failure for presentation.
type ErrorKind int

const (
	ErrorKindNone     ErrorKind = iota
	ErrorKindFetch              // Transport or service failure; retryable
	ErrorKindNotFound           // The requested entry does not exist
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindFetch:
		return "fetch_error"
	case ErrorKindNotFound:
		return "not_found"
	default:
		return "none"
	}
}

// Classify maps an error returned by a Client to its ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	default:
		return ErrorKindFetch
	}
}
