package ifc

import (
	"regexp"
	"strings"
)

// ValidationSummary describes the result of a lightweight format check on a
// STEP payload, without fully decoding it.
type ValidationSummary struct {
	SizeBytes     int    `json:"sizeBytes"`
	HasHeader     bool   `json:"hasHeader"`
	HasFileSchema bool   `json:"hasFileSchema"`
	Schema        string `json:"schema,omitempty"`
	EntityCount   int    `json:"entityCount"`
}

var entityRe = regexp.MustCompile(`#\d+\s*=`)

// Validate runs the basic IFC format checks: the ISO-10303-21 magic, a
// FILE_SCHEMA header entry, and an estimate of the entity count.
func Validate(data []byte) ValidationSummary {
	text := string(data)
	summary := ValidationSummary{
		SizeBytes:     len(data),
		HasHeader:     strings.Contains(text, stepMagic),
		HasFileSchema: strings.Contains(text, "FILE_SCHEMA"),
		EntityCount:   len(entityRe.FindAllString(text, -1)),
	}
	if summary.HasFileSchema {
		if idx := strings.Index(text, "FILE_SCHEMA"); idx >= 0 {
			summary.Schema = extractSchema(text[idx:min(idx+200, len(text))])
		}
	}
	return summary
}

// LooksLikeIFC reports whether the payload plausibly is an IFC file. Used to
// reject bad uploads before a job is created.
func LooksLikeIFC(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(string(head), stepMagic)
}
