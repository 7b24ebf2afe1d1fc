// Package report defines the change-log records produced by the
// normalization engine and the full report document written by the CLI.
package report

import (
	"encoding/json"

	"github.com/agentstation/utc"
)

// ChangeLogEntry is one observed difference between an element's current
// property value and its portal-resolved canonical definition. Entries are
// immutable once emitted.
type ChangeLogEntry struct {
	ElementID    int    `json:"elementId"`
	PsetName     string `json:"psetName"`
	PropertyName string `json:"propertyName"`
	OldValue     any    `json:"oldValue,omitempty"`
	NewValue     any    `json:"newValue"`
	PortalGUID   string `json:"portalGuid"`
	Version      string `json:"version"`
	DataType     string `json:"dataType"`
	Units        string `json:"units,omitempty"`
}

// Analysis summarizes what the engine looked at.
type Analysis struct {
	Walls             int `json:"walls"`
	PropertiesChecked int `json:"propertiesChecked"`
	TotalChanges      int `json:"totalChanges"`
}

// Report is the aggregate outcome of one normalization run.
type Report struct {
	Entries []ChangeLogEntry `json:"changes"`
	Walls   int              `json:"-"`
}

// Analysis computes the run summary from the entries.
func (r *Report) Analysis() Analysis {
	seen := make(map[string]struct{})
	for _, e := range r.Entries {
		seen[e.PropertyName] = struct{}{}
	}
	return Analysis{
		Walls:             r.Walls,
		PropertiesChecked: len(seen),
		TotalChanges:      len(r.Entries),
	}
}

// CountsByProperty returns the number of entries per property name.
func (r *Report) CountsByProperty() map[string]int {
	counts := make(map[string]int)
	for _, e := range r.Entries {
		counts[e.PropertyName]++
	}
	return counts
}

// Metadata describes one processing run for the full report document.
type Metadata struct {
	ProcessedAt           utc.Time `json:"processedAt"`
	ProcessingTimeSeconds float64  `json:"processingTimeSeconds"`
	OriginalFile          string   `json:"originalFile"`
	OriginalFileSize      int      `json:"originalFileSize"`
	OutputFile            string   `json:"outputFile"`
	OutputFileSize        int      `json:"outputFileSize"`
}

// Full is the complete report document written by the process command.
type Full struct {
	Metadata Metadata         `json:"metadata"`
	Analysis Analysis         `json:"analysis"`
	Changes  []ChangeLogEntry `json:"changes"`
}

// MarshalIndent renders the full report as pretty-printed JSON.
func (f *Full) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}
