// Package policy resolves per-organization treatment policy, read-only.
package policy

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/model"
)

// Provider fetches the treatment policy of an organization.
type Provider interface {
	PolicyForOrganization(ctx context.Context, organizationID string) (model.OrgPolicy, error)
}

// StoreProvider reads the organization_policy facet row, falling back
// to configured defaults when an organization has no stored policy.
type StoreProvider struct {
	store    database.ItemStore
	defaults model.OrgPolicy
}

// NewStoreProvider returns a provider over the given store.
func NewStoreProvider(store database.ItemStore, defaults model.OrgPolicy) *StoreProvider {
	return &StoreProvider{store: store, defaults: defaults}
}

// PolicyForOrganization fetches the policy row by organization id.
func (p *StoreProvider) PolicyForOrganization(ctx context.Context, organizationID string) (model.OrgPolicy, error) {
	key, err := model.FacetOrganizationPolicy.BuildKey(map[string]string{"id": organizationID})
	if err != nil {
		return model.OrgPolicy{}, err
	}

	item, err := p.store.Get(ctx, key)
	if errors.Is(err, model.ErrItemNotFound) {
		defaults := p.defaults
		defaults.OrganizationID = organizationID
		return defaults, nil
	}
	if err != nil {
		return model.OrgPolicy{}, err
	}

	policy := model.OrgPolicy{
		OrganizationID:        organizationID,
		MinAcceptanceSeverity: p.defaults.MinAcceptanceSeverity,
		MaxAcceptanceSeverity: p.defaults.MaxAcceptanceSeverity,
		MaxAcceptanceDays:     p.defaults.MaxAcceptanceDays,
		MaxNumberAcceptations: p.defaults.MaxNumberAcceptations,
	}
	if v, ok := item.Float("min_acceptance_severity"); ok {
		policy.MinAcceptanceSeverity = v
	}
	if v, ok := item.Float("max_acceptance_severity"); ok {
		policy.MaxAcceptanceSeverity = v
	}
	if v, ok := item.Float("max_acceptance_days"); ok {
		days := int(v)
		policy.MaxAcceptanceDays = &days
	}
	if v, ok := item.Float("max_number_acceptations"); ok {
		count := int(v)
		policy.MaxNumberAcceptations = &count
	}
	return policy, nil
}

// LoadDefaults reads the policy defaults YAML file. A missing file is
// not an error; the built-in defaults apply.
func LoadDefaults(path string) (model.OrgPolicy, error) {
	defaults := model.DefaultOrgPolicy()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return model.OrgPolicy{}, fmt.Errorf("read policy defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return model.OrgPolicy{}, fmt.Errorf("parse policy defaults: %w", err)
	}
	return defaults, nil
}
