package portal

import (
	"strconv"
	"strings"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
)

// SearchQuery is the body of a property search request.
type SearchQuery struct {
	SearchString      string `json:"searchString"`
	IncludeDeprecated bool   `json:"includeDeprecated"`
}

// SearchHit is one result of a property search. Hits without a guid are
// rejected at the boundary.
type SearchHit struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// Definition is the canonical description of a property as published by the
// portal. Immutable once fetched; not persisted across engine runs.
type Definition struct {
	GUID          string   `json:"guid"`
	Name          string   `json:"name"`
	VersionNumber int      `json:"versionNumber"`
	DataType      string   `json:"dataType"`
	Units         []string `json:"units,omitempty"`
}

// VersionString renders the version number for reporting. An unset
// version yields the empty string.
func (d *Definition) VersionString() string {
	if d.VersionNumber == 0 {
		return ""
	}
	return strconv.Itoa(d.VersionNumber)
}

// UnitsString joins the unit list for reporting.
func (d *Definition) UnitsString() string {
	return strings.Join(d.Units, ", ")
}

// Validate checks the required fields of a fetched definition.
func (d *Definition) Validate() error {
	if d.GUID == "" {
		return errors.NewValidationError("guid", "", "portal definition missing guid")
	}
	return nil
}

// PropertyGroup is a canonical group of properties ("Merkmalsgruppe").
type PropertyGroup struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// Organisation is a publishing organisation registered with the portal.
type Organisation struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}
