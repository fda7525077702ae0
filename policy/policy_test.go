package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/model"
)

func TestPolicyForOrganizationStoredRow(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()

	row := model.Item{
		PK: "ORG#org-1",
		SK: "POLICY",
		Attributes: map[string]any{
			"min_acceptance_severity": 2.0,
			"max_acceptance_severity": 7.5,
			"max_acceptance_days":     90.0,
			"max_number_acceptations": 2.0,
		},
	}
	require.NoError(t, store.Put(ctx, row, database.PutOverwrite))

	provider := NewStoreProvider(store, model.DefaultOrgPolicy())
	policy, err := provider.PolicyForOrganization(ctx, "org-1")
	require.NoError(t, err)

	assert.Equal(t, "org-1", policy.OrganizationID)
	assert.Equal(t, 2.0, policy.MinAcceptanceSeverity)
	assert.Equal(t, 7.5, policy.MaxAcceptanceSeverity)
	require.NotNil(t, policy.MaxAcceptanceDays)
	assert.Equal(t, 90, *policy.MaxAcceptanceDays)
	require.NotNil(t, policy.MaxNumberAcceptations)
	assert.Equal(t, 2, *policy.MaxNumberAcceptations)
}

func TestPolicyForOrganizationFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	provider := NewStoreProvider(database.NewMemStore(), model.DefaultOrgPolicy())

	policy, err := provider.PolicyForOrganization(ctx, "org-unknown")
	require.NoError(t, err)

	assert.Equal(t, "org-unknown", policy.OrganizationID)
	assert.Equal(t, 0.0, policy.MinAcceptanceSeverity)
	assert.Equal(t, 10.0, policy.MaxAcceptanceSeverity)
	assert.Nil(t, policy.MaxAcceptanceDays)
	assert.Nil(t, policy.MaxNumberAcceptations)
}

func TestPolicyForOrganizationPartialRow(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()

	row := model.Item{
		PK: "ORG#org-2",
		SK: "POLICY",
		Attributes: map[string]any{
			"max_acceptance_days": 30.0,
		},
	}
	require.NoError(t, store.Put(ctx, row, database.PutOverwrite))

	provider := NewStoreProvider(store, model.DefaultOrgPolicy())
	policy, err := provider.PolicyForOrganization(ctx, "org-2")
	require.NoError(t, err)

	// unset fields keep the defaults
	assert.Equal(t, 10.0, policy.MaxAcceptanceSeverity)
	require.NotNil(t, policy.MaxAcceptanceDays)
	assert.Equal(t, 30, *policy.MaxAcceptanceDays)
	assert.Nil(t, policy.MaxNumberAcceptations)
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := "min_acceptance_severity: 3.0\nmax_acceptance_severity: 8.0\nmax_acceptance_days: 60\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	defaults, err := LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, defaults.MinAcceptanceSeverity)
	assert.Equal(t, 8.0, defaults.MaxAcceptanceSeverity)
	require.NotNil(t, defaults.MaxAcceptanceDays)
	assert.Equal(t, 60, *defaults.MaxAcceptanceDays)
	assert.Nil(t, defaults.MaxNumberAcceptations)
}

func TestLoadDefaultsMissingFile(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		defaults, err := LoadDefaults(path)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultOrgPolicy(), defaults)
	}
}

func TestLoadDefaultsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_acceptance_days: [oops"), 0o600))

	_, err := LoadDefaults(path)
	assert.Error(t, err)
}
