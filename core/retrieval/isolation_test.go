package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditcore/evidencer/model"
)

// fakeVerifier answers ownership checks from a fixed map.
type fakeVerifier struct {
	owned map[string]string // item id -> tenant
	err   error
	calls int
}

func (v *fakeVerifier) VerifyOwnership(_ context.Context, tenantID string, itemID string) (bool, error) {
	v.calls++
	if v.err != nil {
		return false, v.err
	}
	return v.owned[itemID] == tenantID, nil
}

func TestEnforcePassesMatchingTenant(t *testing.T) {
	enforcer := NewEnforcer(nil, nil)
	items := []*model.CandidateItem{
		{ID: "1", TenantID: "tenant-a", Metadata: model.Metadata{}},
		{ID: "2", TenantID: "tenant-a"},
	}

	err := enforcer.Enforce(context.Background(), "tenant-a", items)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, "tenant-a", item.Metadata.TenantID(), "Expected metadata stamped with the tenant")
	}
}

func TestEnforceStampsVerifiedItems(t *testing.T) {
	verifier := &fakeVerifier{owned: map[string]string{"untagged": "tenant-a"}}
	enforcer := NewEnforcer(verifier, nil)

	items := []*model.CandidateItem{{ID: "untagged", Content: "some evidence"}}
	err := enforcer.Enforce(context.Background(), "tenant-a", items)

	require.NoError(t, err)
	assert.Equal(t, 1, verifier.calls, "Expected a source record lookup before stamping")
	assert.Equal(t, "tenant-a", items[0].TenantID, "Expected the verified item stamped")
	assert.Equal(t, "tenant-a", items[0].Metadata.TenantID())
}

func TestEnforceNeverOverridesConflictingTenant(t *testing.T) {
	// Stamping only fills missing tags. A conflicting tag is a breach even
	// when the verifier would vouch for the id.
	verifier := &fakeVerifier{owned: map[string]string{"x": "tenant-a"}}
	enforcer := NewEnforcer(verifier, nil)

	items := []*model.CandidateItem{{ID: "x", TenantID: "tenant-b"}}
	err := enforcer.Enforce(context.Background(), "tenant-a", items)

	var breach *IsolationBreachError
	require.ErrorAs(t, err, &breach)
	assert.Equal(t, "tenant-a", breach.RequestTenant)
	assert.Equal(t, "tenant-b", breach.ItemTenant)
	assert.Equal(t, 0, verifier.calls, "Expected no stamping attempt for a tagged item")
}

func TestEnforceBreachOnForeignTag(t *testing.T) {
	enforcer := NewEnforcer(nil, nil)
	items := []*model.CandidateItem{
		{ID: "1", TenantID: "tenant-a"},
		{ID: "2", TenantID: "tenant-b"},
		{ID: "3", TenantID: "tenant-a"},
	}

	err := enforcer.Enforce(context.Background(), "tenant-a", items)

	var breach *IsolationBreachError
	require.ErrorAs(t, err, &breach, "Expected a single foreign item to abort the whole set")
	assert.Equal(t, "2", breach.ItemID)
}

func TestEnforceBreachOnUnverifiableItem(t *testing.T) {
	t.Run("No verifier configured", func(t *testing.T) {
		enforcer := NewEnforcer(nil, nil)
		err := enforcer.Enforce(context.Background(), "tenant-a", []*model.CandidateItem{{ID: "untagged"}})

		var breach *IsolationBreachError
		require.ErrorAs(t, err, &breach, "Expected untagged items to fail closed without a verifier")
	})

	t.Run("Verifier denies ownership", func(t *testing.T) {
		enforcer := NewEnforcer(&fakeVerifier{owned: map[string]string{}}, nil)
		err := enforcer.Enforce(context.Background(), "tenant-a", []*model.CandidateItem{{ID: "untagged"}})

		var breach *IsolationBreachError
		require.ErrorAs(t, err, &breach)
	})

	t.Run("Verifier errors", func(t *testing.T) {
		enforcer := NewEnforcer(&fakeVerifier{err: errors.New("db down")}, nil)
		err := enforcer.Enforce(context.Background(), "tenant-a", []*model.CandidateItem{{ID: "untagged"}})

		var breach *IsolationBreachError
		require.ErrorAs(t, err, &breach, "Expected verification errors to fail closed, not open")
	})
}

func TestEnforceUsesMetadataTagFallback(t *testing.T) {
	enforcer := NewEnforcer(nil, nil)
	items := []*model.CandidateItem{{
		ID:       "meta-only",
		Metadata: model.Metadata{model.MetaTenantID: "tenant-a"},
	}}

	err := enforcer.Enforce(context.Background(), "tenant-a", items)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", items[0].TenantID, "Expected the struct field normalized from metadata")
}
