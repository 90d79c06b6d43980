package retrieval

import (
	"context"
	"log/slog"

	"github.com/auditcore/evidencer/model"
)

// SourceVerifier checks a record id against the corpus store for the
// stamping pass. Implementations must consult the authoritative record,
// not the candidate being verified.
type SourceVerifier interface {
	VerifyOwnership(ctx context.Context, tenantID string, itemID string) (bool, error)
}

// Enforcer is the second isolation layer behind in-query tenant
// filtering. It stamps missing tenant tags from verified source records
// and runs a leak canary over every candidate before results leave the
// engine. The two layers are redundant on purpose: the canary exists to
// catch bugs in the first layer.
type Enforcer struct {
	verifier SourceVerifier
	logger   *slog.Logger
}

// NewEnforcer creates the isolation enforcer. verifier may be nil, in
// which case untagged candidates are breaches outright.
func NewEnforcer(verifier SourceVerifier, logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{verifier: verifier, logger: logger}
}

// Enforce runs the stamping pass and the leak canary in one walk. A
// missing tag is only ever filled after the source record verifies
// ownership; an existing tag is never overwritten. Any mismatch or
// unverifiable tag aborts the whole request fail-closed.
func (e *Enforcer) Enforce(ctx context.Context, tenantID string, items []*model.CandidateItem) error {
	for _, item := range items {
		tag := item.TenantID
		if tag == "" {
			tag = item.Metadata.TenantID()
		}

		if tag == "" {
			if e.verifier != nil && !item.SyntheticID && item.ID != "" {
				owned, err := e.verifier.VerifyOwnership(ctx, tenantID, item.ID)
				if err != nil {
					e.logger.Error("tenant stamping verification failed",
						slog.String("item", item.ID), slog.Any("error", err))
				}
				if err == nil && owned {
					item.TenantID = tenantID
					e.stampMetadata(item, tenantID)
					continue
				}
			}
			e.logger.Error("isolation breach: untagged candidate",
				slog.String("item", item.Key()), slog.String("tenant", tenantID))
			return &IsolationBreachError{RequestTenant: tenantID, ItemID: item.Key()}
		}

		if tag != tenantID {
			e.logger.Error("isolation breach: foreign tenant tag",
				slog.String("item", item.Key()),
				slog.String("item_tenant", tag),
				slog.String("tenant", tenantID))
			return &IsolationBreachError{RequestTenant: tenantID, ItemID: item.Key(), ItemTenant: tag}
		}

		item.TenantID = tag
		e.stampMetadata(item, tag)
	}

	return nil
}

func (e *Enforcer) stampMetadata(item *model.CandidateItem, tenantID string) {
	if item.Metadata == nil {
		item.Metadata = model.Metadata{}
	}
	if item.Metadata.TenantID() == "" {
		item.Metadata[model.MetaTenantID] = tenantID
	}
}
