package historic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vulntrack/vtrack-backend/model"
	"github.com/vulntrack/vtrack-backend/util"
)

// BuildEntity composes metadata and latest-per-series records from a
// fetched partition into a typed entity, discriminated by the metadata
// "type" attribute. Assembly is all-or-nothing: a missing required
// series fails the whole build rather than returning a partial entity.
func BuildEntity(itemID string, keys model.KeyStructure, items []model.Item) (model.Entity, error) {
	meta, err := Metadata(itemID, keys, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrEntityNotFound, itemID)
	}

	switch meta.String("type") {
	case model.TypeVulnerability:
		return assembleVulnerability(itemID, meta, items)
	case model.TypeGitRoot:
		return assembleGitRoot(itemID, meta, items)
	case model.TypeResource:
		return assembleResource(itemID, meta, items)
	}
	return nil, fmt.Errorf("item %s: unknown entity type %q", itemID, meta.String("type"))
}

func assembleVulnerability(itemID string, meta model.Item, items []model.Item) (model.Vulnerability, error) {
	created, err := model.ParseTime(meta.String("created_date"))
	if err != nil {
		return model.Vulnerability{}, fmt.Errorf("vulnerability %s: %w", itemID, err)
	}

	v := model.Vulnerability{
		ID:             itemID,
		GroupName:      parentFromSortKey(meta.SK),
		OrganizationID: meta.String("organization_id"),
		VulnType:       meta.String("vuln_type"),
		Where:          meta.String("where"),
		Specific:       meta.String("specific"),
		Source:         meta.String("source"),
		CVSSVector:     meta.String("cvss_vector"),
		CreatedBy:      meta.String("created_by"),
		CreatedDate:    created,
	}
	if v.CVSSVector != "" {
		v.SeverityScore = util.CalculateCVSSScore(v.CVSSVector)
	} else if score, ok := meta.Float("severity_score"); ok {
		v.SeverityScore = score
	}
	v.Severity = util.GetSeverityRating(v.SeverityScore)

	stateItem, err := Latest(itemID, model.VulnerabilityKeys, model.SeriesState, items)
	if err != nil {
		return model.Vulnerability{}, err
	}
	if v.State, err = model.StateEntryFromItem(stateItem); err != nil {
		return model.Vulnerability{}, err
	}

	treatmentItem, err := Latest(itemID, model.VulnerabilityKeys, model.SeriesTreatment, items)
	if err != nil {
		return model.Vulnerability{}, err
	}
	if v.Treatment, err = model.TreatmentEntryFromItem(treatmentItem); err != nil {
		return model.Vulnerability{}, err
	}

	// Optional series: absence is normal, decode failures are not.
	if item, err := Latest(itemID, model.VulnerabilityKeys, model.SeriesVerification, items); err == nil {
		entry, err := model.VerificationEntryFromItem(item)
		if err != nil {
			return model.Vulnerability{}, err
		}
		v.Verification = &entry
	} else if !errors.Is(err, model.ErrLatestNotFound) {
		return model.Vulnerability{}, err
	}

	if item, err := Latest(itemID, model.VulnerabilityKeys, model.SeriesZeroRisk, items); err == nil {
		entry, err := model.ZeroRiskEntryFromItem(item)
		if err != nil {
			return model.Vulnerability{}, err
		}
		v.ZeroRisk = &entry
	} else if !errors.Is(err, model.ErrLatestNotFound) {
		return model.Vulnerability{}, err
	}

	return v, nil
}

func assembleGitRoot(itemID string, meta model.Item, items []model.Item) (model.GitRoot, error) {
	created, err := model.ParseTime(meta.String("created_date"))
	if err != nil {
		return model.GitRoot{}, fmt.Errorf("root %s: %w", itemID, err)
	}

	r := model.GitRoot{
		ID:             itemID,
		GroupName:      parentFromSortKey(meta.SK),
		OrganizationID: meta.String("organization_id"),
		URL:            meta.String("url"),
		Branch:         meta.String("branch"),
		Nickname:       meta.String("nickname"),
		CreatedBy:      meta.String("created_by"),
		CreatedDate:    created,
	}

	stateItem, err := Latest(itemID, model.GitRootKeys, model.SeriesState, items)
	if err != nil {
		return model.GitRoot{}, err
	}
	if r.State, err = model.StateEntryFromItem(stateItem); err != nil {
		return model.GitRoot{}, err
	}

	cloneItem, err := Latest(itemID, model.GitRootKeys, model.SeriesCloning, items)
	if err != nil {
		return model.GitRoot{}, err
	}
	if r.Cloning, err = model.CloneEntryFromItem(cloneItem); err != nil {
		return model.GitRoot{}, err
	}

	return r, nil
}

func assembleResource(itemID string, meta model.Item, items []model.Item) (model.Resource, error) {
	created, err := model.ParseTime(meta.String("created_date"))
	if err != nil {
		return model.Resource{}, fmt.Errorf("resource %s: %w", itemID, err)
	}

	r := model.Resource{
		ID:          itemID,
		RootID:      parentFromSortKey(meta.SK),
		Kind:        meta.String("kind"),
		Value:       meta.String("value"),
		CreatedBy:   meta.String("created_by"),
		CreatedDate: created,
	}

	stateItem, err := Latest(itemID, model.ResourceKeys, model.SeriesState, items)
	if err != nil {
		return model.Resource{}, err
	}
	if r.State, err = model.StateEntryFromItem(stateItem); err != nil {
		return model.Resource{}, err
	}

	return r, nil
}

// parentFromSortKey reads the parent id out of a metadata sort key,
// which is always "METADATA#<PARENT KIND>#<parent id>".
func parentFromSortKey(sortKey string) string {
	parts := strings.SplitN(sortKey, "#", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// entityIDFromPartitionKey reads the entity uuid out of a partition
// key, which is always "<KIND>#<uuid>".
func entityIDFromPartitionKey(partitionKey string) string {
	idx := strings.Index(partitionKey, "#")
	if idx < 0 {
		return partitionKey
	}
	return partitionKey[idx+1:]
}
