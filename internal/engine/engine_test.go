package engine

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pb40development/ifc-normalizer/internal/portal"
	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
)

const testModel = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('model.ifc','2024-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FL9r',$,'Wall 1',$,$,$,$,$);
#2=IFCPROPERTYSINGLEVALUE('FireRating',$,IFCLABEL('F90'),$);
#3=IFCPROPERTYSINGLEVALUE('IsExternal',$,IFCBOOLEAN(.T.),$);
#4=IFCPROPERTYSINGLEVALUE('U-Wert',$,IFCREAL(0.28),$);
#5=IFCPROPERTYSET('1gBZ6hQrL5peCQ7msjJYnX',$,'Pset_WallCommon',$,(#2,#3,#4));
#6=IFCRELDEFINESBYPROPERTIES('0jf0kWdPz1fvHTOMdBQnQA',$,$,$,(#1),#5);
#7=IFCWALLSTANDARDCASE('3vB2YO$MX4xv5uCqZZG05x',$,'Wall 2',$,$,$,$,$);
ENDSEC;
END-ISO-10303-21;
`

// fakeResolver resolves every queried name to a fixed definition and
// records how it was called.
type fakeResolver struct {
	calls   atomic.Int32
	queried []string
	fail    map[string]error
	missing map[string]bool
}

func (f *fakeResolver) ResolveProperty(_ context.Context, name string) (*portal.Definition, error) {
	f.calls.Add(1)
	f.queried = append(f.queried, name)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	if f.missing[name] {
		return nil, nil
	}
	return &portal.Definition{
		GUID:          "guid-" + strings.ToLower(name),
		Name:          name,
		VersionNumber: 1,
		DataType:      "string",
	}, nil
}

// noHitResolver answers every query with an empty search result.
type noHitResolver struct{}

func (noHitResolver) ResolveProperty(context.Context, string) (*portal.Definition, error) {
	return nil, nil
}

func openModel(t *testing.T) *ifc.Document {
	t.Helper()
	doc, err := ifc.Open([]byte(testModel))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func TestCollectPropertySets(t *testing.T) {
	doc := openModel(t)

	sets, err := CollectPropertySets(doc, 1)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "Pset_WallCommon", sets[0].Name)
	require.Len(t, sets[0].Properties, 3)
	assert.Equal(t, "FireRating", sets[0].Properties[0].Name)
	assert.Equal(t, "F90", sets[0].Properties[0].Value.Label)

	// The second wall has no relationships.
	sets, err = CollectPropertySets(doc, 7)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestCollectRejectsNonElement(t *testing.T) {
	doc := openModel(t)

	_, err := CollectPropertySets(doc, 5)
	require.Error(t, err)
	assert.True(t, errors.IsDocumentError(err))
}

func TestCollectSkipsMalformedPropertySet(t *testing.T) {
	model := `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('model.ifc','2024-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FL9r',$,'Wall 1',$,$,$,$,$);
#2=IFCPROPERTYSINGLEVALUE('FireRating',$,IFCLABEL('F90'),$);
#3=IFCPROPERTYSET($,$,$,$,(#2));
#4=IFCRELDEFINESBYPROPERTIES('0jf0kWdPz1fvHTOMdBQnQA',$,$,$,(#1),#3);
#5=IFCPROPERTYSET('1gBZ6hQrL5peCQ7msjJYnX',$,'Pset_WallCommon',$,(#2));
#6=IFCRELDEFINESBYPROPERTIES('1jf0kWdPz1fvHTOMdBQnQA',$,$,$,(#1),#5);
ENDSEC;
END-ISO-10303-21;
`
	doc, err := ifc.Open([]byte(model))
	require.NoError(t, err)
	t.Cleanup(doc.Close)

	// The set without a GUID and name is dropped, the well-formed one
	// survives.
	sets, err := CollectPropertySets(doc, 1)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "Pset_WallCommon", sets[0].Name)
}

func TestMatcherTiers(t *testing.T) {
	m := defaultMatcher()
	props := []Property{
		{ID: 1, Name: "Brandschutzklasse"},
		{ID: 2, Name: "fire_rating"},
		{ID: 3, Name: "FireRating"},
	}

	// Exact wins over everything.
	found, tier := m.Find("FireRating", props)
	require.NotNil(t, found)
	assert.Equal(t, 3, found.ID)
	assert.Equal(t, MatchExact, tier)

	// With the exact entry gone, the normalized form matches first.
	found, tier = m.Find("FireRating", props[:2])
	require.NotNil(t, found)
	assert.Equal(t, 2, found.ID)
	assert.Equal(t, MatchNormalized, tier)

	// With only the German name left, the synonym table carries it.
	found, tier = m.Find("FireRating", props[:1])
	require.NotNil(t, found)
	assert.Equal(t, 1, found.ID)
	assert.Equal(t, MatchSynonym, tier)
}

func TestMatcherLooseContainment(t *testing.T) {
	m := defaultMatcher()
	props := []Property{{ID: 1, Name: "Wall FireRating Override"}}

	found, tier := m.Find("FireRating", props)
	require.NotNil(t, found)
	assert.Equal(t, MatchLoose, tier)

	// Short names never match loosely.
	found, tier = m.Find("No", []Property{{ID: 1, Name: "Nothing like it"}})
	assert.Nil(t, found)
	assert.Equal(t, MatchNone, tier)
}

func TestNormalizeElement(t *testing.T) {
	doc := openModel(t)
	resolver := &fakeResolver{}
	eng := New(resolver)

	entries, err := eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byName := make(map[string]int)
	for i, e := range entries {
		byName[e.PropertyName] = i
	}

	// FireRating is present: old value is kept as the new value.
	fr := entries[byName["FireRating"]]
	assert.Equal(t, 1, fr.ElementID)
	assert.Equal(t, "Pset_WallCommon", fr.PsetName)
	assert.Equal(t, "F90", fr.OldValue)
	assert.Equal(t, "F90", fr.NewValue)
	assert.Equal(t, "guid-firerating", fr.PortalGUID)

	// ThermalTransmittance is carried as "U-Wert"; the local lookup is
	// strict, so the old value is not picked up and the default is
	// proposed.
	tt := entries[byName["ThermalTransmittance"]]
	assert.Nil(t, tt.OldValue)
	assert.Equal(t, 0.35, tt.NewValue)

	// Gewerk is absent: the default is recorded, no old value.
	gw := entries[byName["Gewerk"]]
	assert.Nil(t, gw.OldValue)
	assert.Equal(t, false, gw.NewValue)

	// IsExternal is present as a boolean.
	ie := entries[byName["IsExternal"]]
	assert.Equal(t, true, ie.OldValue)
	assert.Equal(t, true, ie.NewValue)
}

func TestNormalizeElementAuditOnly(t *testing.T) {
	doc := openModel(t)
	before, err := doc.Bytes()
	require.NoError(t, err)

	eng := New(&fakeResolver{})
	_, err = eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)

	after, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "audit run must not mutate the document")
}

func TestNormalizeElementApplyDefaults(t *testing.T) {
	doc := openModel(t)
	eng := New(&fakeResolver{}, WithApplyDefaults(true))

	// Wall 2 carries no properties at all.
	_, err := eng.NormalizeElement(context.Background(), doc, 7)
	require.NoError(t, err)

	sets, err := CollectPropertySets(doc, 7)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "Pset_WallCommon", sets[0].Name)
	require.Len(t, sets[0].Properties, 4)

	fr := sets[0].FindProperty("FireRating")
	require.NotNil(t, fr)
	assert.Equal(t, "T30", fr.Value.Label)
}

func TestApplyDefaultsSkipsSynonymCarriedProperties(t *testing.T) {
	doc := openModel(t)
	eng := New(&fakeResolver{}, WithApplyDefaults(true))

	// Wall 1 carries FireRating and IsExternal exactly, and
	// ThermalTransmittance as "U-Wert". Only Gewerk is truly missing.
	_, err := eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)

	sets, err := CollectPropertySets(doc, 1)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Len(t, sets[0].Properties, 4)

	gw := sets[0].FindProperty("Gewerk")
	require.NotNil(t, gw)
	assert.Equal(t, false, gw.Value.Bool)
	assert.Nil(t, sets[0].FindProperty("ThermalTransmittance"), "synonym-carried property must not be duplicated")
}

func TestResolutionFailureSkipsProperty(t *testing.T) {
	doc := openModel(t)
	resolver := &fakeResolver{
		fail: map[string]error{
			"FireRating": errors.NewAPIError("/merkmale/api/v1/public/property", 500, "boom"),
		},
	}
	eng := New(resolver)

	entries, err := eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)

	// The failed property is skipped, the other three survive.
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEqual(t, "FireRating", e.PropertyName)
	}
}

func TestUnresolvedPropertyOmittedFromChangeLog(t *testing.T) {
	doc := openModel(t)
	eng := New(noHitResolver{})

	// Nothing resolves, so nothing is reported. An entry without a
	// catalog definition would carry no GUID to normalize against.
	entries, err := eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveSynonymFallback(t *testing.T) {
	doc := openModel(t)
	resolver := &fakeResolver{missing: map[string]bool{"FireRating": true}}
	eng := New(resolver)

	_, err := eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)

	// After the direct miss, at least one synonym variant was queried.
	require.Greater(t, len(resolver.queried), 4)
	assert.Equal(t, "FireRating", resolver.queried[0])
}

func TestResolutionCaching(t *testing.T) {
	doc := openModel(t)
	resolver := &fakeResolver{}
	eng := New(resolver)

	_, err := eng.NormalizeElement(context.Background(), doc, 1)
	require.NoError(t, err)
	callsAfterFirst := resolver.calls.Load()

	_, err = eng.NormalizeElement(context.Background(), doc, 7)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, resolver.calls.Load(), "second element must hit the cache")
}

func TestNormalizeDocument(t *testing.T) {
	doc := openModel(t)
	eng := New(&fakeResolver{})

	result, err := eng.NormalizeDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Walls)
	assert.Len(t, result.Entries, 8)

	analysis := result.Analysis()
	assert.Equal(t, 2, analysis.Walls)
	assert.Equal(t, 4, analysis.PropertiesChecked)
	assert.Equal(t, 8, analysis.TotalChanges)

	counts := result.CountsByProperty()
	assert.Equal(t, 2, counts["FireRating"])
}

func defaultMatcher() *Matcher {
	return New(&fakeResolver{}).matcher
}
