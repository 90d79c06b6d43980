package retrieval

import (
	"errors"
	"fmt"

	"github.com/auditcore/evidencer/model"
)

var (
	// ErrNoAdapters is returned when a plan fans out to zero layers.
	ErrNoAdapters = errors.New("retrieval: plan selects no adapters")

	// ErrEmbedderRequired is returned when a plan needs dense retrieval
	// but no embedder is configured.
	ErrEmbedderRequired = errors.New("retrieval: embedder is required for vector retrieval")
)

// DegradedError reports a mandatory adapter failing. Non-mandatory
// adapter failures never become errors; they surface as trace flags.
type DegradedError struct {
	Layer model.SourceLayer
	Err   error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("retrieval: mandatory %s adapter failed: %v", e.Layer, e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// IsolationBreachError is the fail-closed security error: at least one
// candidate's tenant does not match the authenticated request tenant.
// The whole response aborts; partial evidence is never returned, because
// dropping only the offending item would mask a systemic bug.
type IsolationBreachError struct {
	RequestTenant string
	ItemID        string
	ItemTenant    string
}

func (e *IsolationBreachError) Error() string {
	if e.ItemTenant == "" {
		return fmt.Sprintf("retrieval: isolation breach: item %s carries no tenant tag (request tenant %s)", e.ItemID, e.RequestTenant)
	}
	return fmt.Sprintf("retrieval: isolation breach: item %s belongs to tenant %s, request tenant is %s", e.ItemID, e.ItemTenant, e.RequestTenant)
}
