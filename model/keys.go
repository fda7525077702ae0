package model

import "fmt"

// Entity type discriminators, stored in the "type" attribute of every
// metadata row.
const (
	TypeVulnerability = "VULNERABILITY"
	TypeGitRoot       = "GIT_ROOT"
	TypeResource      = "RESOURCE"
)

// KeyStructure groups the facets of one entity kind: its metadata facet
// plus, per historic series, the historic and latest-projection facets.
// Required series exist from entity creation; optional series appear on
// first use.
type KeyStructure struct {
	EntityType     string
	Metadata       Facet
	Historic       map[string]Facet
	Latest         map[string]Facet
	RequiredSeries []string
	OptionalSeries []string
}

// PartitionKey renders the partition key for an item id.
func (k KeyStructure) PartitionKey(itemID string) string {
	return renderTemplate(k.Metadata.PartitionTemplate, map[string]string{"id": itemID})
}

var (
	// VulnerabilityKeys is the key structure of vulnerability entities.
	VulnerabilityKeys = KeyStructure{
		EntityType: TypeVulnerability,
		Metadata:   FacetVulnerabilityMetadata,
		Historic: map[string]Facet{
			SeriesState:        FacetVulnerabilityHistoricState,
			SeriesTreatment:    FacetVulnerabilityHistoricTreatment,
			SeriesVerification: FacetVulnerabilityHistoricVerification,
			SeriesZeroRisk:     FacetVulnerabilityHistoricZeroRisk,
		},
		Latest: map[string]Facet{
			SeriesState:        FacetVulnerabilityLatestState,
			SeriesTreatment:    FacetVulnerabilityLatestTreatment,
			SeriesVerification: FacetVulnerabilityLatestVerification,
			SeriesZeroRisk:     FacetVulnerabilityLatestZeroRisk,
		},
		RequiredSeries: []string{SeriesState, SeriesTreatment},
		OptionalSeries: []string{SeriesVerification, SeriesZeroRisk},
	}

	// GitRootKeys is the key structure of source-code root entities.
	GitRootKeys = KeyStructure{
		EntityType: TypeGitRoot,
		Metadata:   FacetGitRootMetadata,
		Historic: map[string]Facet{
			SeriesState:   FacetGitRootHistoricState,
			SeriesCloning: FacetGitRootHistoricCloning,
		},
		Latest: map[string]Facet{
			SeriesState:   FacetGitRootLatestState,
			SeriesCloning: FacetGitRootLatestCloning,
		},
		RequiredSeries: []string{SeriesState, SeriesCloning},
	}

	// ResourceKeys is the key structure of environment resources.
	ResourceKeys = KeyStructure{
		EntityType: TypeResource,
		Metadata:   FacetResourceMetadata,
		Historic: map[string]Facet{
			SeriesState: FacetResourceHistoricState,
		},
		Latest: map[string]Facet{
			SeriesState: FacetResourceLatestState,
		},
		RequiredSeries: []string{SeriesState},
	}
)

// KeysForType resolves the key structure for a metadata type
// discriminator.
func KeysForType(entityType string) (KeyStructure, error) {
	switch entityType {
	case TypeVulnerability:
		return VulnerabilityKeys, nil
	case TypeGitRoot:
		return GitRootKeys, nil
	case TypeResource:
		return ResourceKeys, nil
	}
	return KeyStructure{}, fmt.Errorf("unknown entity type %q", entityType)
}
