package model

import (
	"fmt"
	"strings"
)

// A Facet is a named key template. Every stored row's composite key is
// derived from exactly one facet plus the minimal set of identifying
// values, so identical facet+values always address the same row. That
// determinism is what makes writes idempotent and deduplicates
// externally-sourced records for free.
//
// Sort templates for historic facets embed the series name and an
// ISO-8601 UTC timestamp, so lexicographic order over sort keys equals
// chronological order within a series.
type Facet struct {
	Name              string
	PartitionTemplate string
	SortTemplate      string
	Required          []string
}

// BuildKey renders the facet templates with the given values. Fails
// with ErrMissingKeyValue when a required value is absent or empty.
func (f Facet) BuildKey(values map[string]string) (PrimaryKey, error) {
	for _, name := range f.Required {
		if strings.TrimSpace(values[name]) == "" {
			return PrimaryKey{}, fmt.Errorf("facet %s: %w: %s", f.Name, ErrMissingKeyValue, name)
		}
	}
	return PrimaryKey{
		PartitionKey: renderTemplate(f.PartitionTemplate, values),
		SortKey:      renderTemplate(f.SortTemplate, values),
	}, nil
}

func renderTemplate(template string, values map[string]string) string {
	out := template
	for name, value := range values {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// Series names. The sort-key prefix of a series is its name plus "#".
const (
	SeriesState        = "STATE"
	SeriesTreatment    = "TREATMENT"
	SeriesVerification = "VERIFICATION"
	SeriesZeroRisk     = "ZERORISK"
	SeriesCloning      = "CLON"
)

// SeriesPrefix is the sort-key prefix shared by all historic records of
// a series.
func SeriesPrefix(series string) string {
	return series + "#"
}

// LatestSortKey is the sort key of the denormalized latest projection
// of a series. Deliberately outside the historic prefix so projection
// rows never shadow log records in prefix scans.
func LatestSortKey(series string) string {
	return "LATEST#" + series
}

// MetadataSortPrefix is the sort-key prefix shared by all metadata
// facets regardless of parent kind.
const MetadataSortPrefix = "METADATA#"

// Facet definitions. These are the only key layouts in the store; no
// row is ever written outside of them.
var (
	FacetVulnerabilityMetadata = Facet{
		Name:              "vulnerability_metadata",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "METADATA#GROUP#{group_name}",
		Required:          []string{"id", "group_name"},
	}
	FacetVulnerabilityHistoricState = Facet{
		Name:              "vulnerability_historic_state",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "STATE#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetVulnerabilityLatestState = Facet{
		Name:              "vulnerability_latest_state",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "LATEST#STATE",
		Required:          []string{"id"},
	}
	FacetVulnerabilityHistoricTreatment = Facet{
		Name:              "vulnerability_historic_treatment",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "TREATMENT#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetVulnerabilityLatestTreatment = Facet{
		Name:              "vulnerability_latest_treatment",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "LATEST#TREATMENT",
		Required:          []string{"id"},
	}
	FacetVulnerabilityHistoricVerification = Facet{
		Name:              "vulnerability_historic_verification",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "VERIFICATION#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetVulnerabilityLatestVerification = Facet{
		Name:              "vulnerability_latest_verification",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "LATEST#VERIFICATION",
		Required:          []string{"id"},
	}
	FacetVulnerabilityHistoricZeroRisk = Facet{
		Name:              "vulnerability_historic_zero_risk",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "ZERORISK#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetVulnerabilityLatestZeroRisk = Facet{
		Name:              "vulnerability_latest_zero_risk",
		PartitionTemplate: "VULN#{id}",
		SortTemplate:      "LATEST#ZERORISK",
		Required:          []string{"id"},
	}

	FacetGitRootMetadata = Facet{
		Name:              "git_root_metadata",
		PartitionTemplate: "ROOT#{id}",
		SortTemplate:      "METADATA#GROUP#{group_name}",
		Required:          []string{"id", "group_name"},
	}
	FacetGitRootHistoricState = Facet{
		Name:              "git_root_historic_state",
		PartitionTemplate: "ROOT#{id}",
		SortTemplate:      "STATE#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetGitRootLatestState = Facet{
		Name:              "git_root_latest_state",
		PartitionTemplate: "ROOT#{id}",
		SortTemplate:      "LATEST#STATE",
		Required:          []string{"id"},
	}
	FacetGitRootHistoricCloning = Facet{
		Name:              "git_root_historic_cloning",
		PartitionTemplate: "ROOT#{id}",
		SortTemplate:      "CLON#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetGitRootLatestCloning = Facet{
		Name:              "git_root_latest_cloning",
		PartitionTemplate: "ROOT#{id}",
		SortTemplate:      "LATEST#CLON",
		Required:          []string{"id"},
	}

	FacetResourceMetadata = Facet{
		Name:              "resource_metadata",
		PartitionTemplate: "RES#{id}",
		SortTemplate:      "METADATA#ROOT#{root_id}",
		Required:          []string{"id", "root_id"},
	}
	FacetResourceHistoricState = Facet{
		Name:              "resource_historic_state",
		PartitionTemplate: "RES#{id}",
		SortTemplate:      "STATE#{iso8601utc}#{ordinal}",
		Required:          []string{"id", "iso8601utc", "ordinal"},
	}
	FacetResourceLatestState = Facet{
		Name:              "resource_latest_state",
		PartitionTemplate: "RES#{id}",
		SortTemplate:      "LATEST#STATE",
		Required:          []string{"id"},
	}

	FacetOrganizationPolicy = Facet{
		Name:              "organization_policy",
		PartitionTemplate: "ORG#{id}",
		SortTemplate:      "POLICY",
		Required:          []string{"id"},
	}
)
