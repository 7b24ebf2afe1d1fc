package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysis(t *testing.T) {
	r := &Report{
		Walls: 3,
		Entries: []ChangeLogEntry{
			{ElementID: 1, PropertyName: "FireRating"},
			{ElementID: 2, PropertyName: "FireRating"},
			{ElementID: 1, PropertyName: "IsExternal"},
		},
	}

	a := r.Analysis()
	assert.Equal(t, 3, a.Walls)
	assert.Equal(t, 2, a.PropertiesChecked)
	assert.Equal(t, 3, a.TotalChanges)

	counts := r.CountsByProperty()
	assert.Equal(t, 2, counts["FireRating"])
	assert.Equal(t, 1, counts["IsExternal"])
}

func TestEmptyReport(t *testing.T) {
	r := &Report{}
	a := r.Analysis()
	assert.Zero(t, a.PropertiesChecked)
	assert.Zero(t, a.TotalChanges)
	assert.Empty(t, r.CountsByProperty())
}

func TestChangeLogEntryJSON(t *testing.T) {
	withOld := ChangeLogEntry{
		ElementID:    7,
		PsetName:     "Pset_WallCommon",
		PropertyName: "FireRating",
		OldValue:     "T30",
		NewValue:     "T30",
		PortalGUID:   "abc-123",
		Version:      "1.0",
		DataType:     "String",
	}

	data, err := json.Marshal(withOld)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"oldValue":"T30"`)
	assert.NotContains(t, string(data), `"units"`)

	withoutOld := ChangeLogEntry{ElementID: 8, PropertyName: "FireRating", NewValue: "T30"}
	data, err = json.Marshal(withoutOld)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "oldValue"),
		"absent old value must be omitted, got %s", data)
}
