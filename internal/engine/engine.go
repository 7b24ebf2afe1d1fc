// Package engine implements element property normalization: watched
// properties are located by tiered name matching, resolved against the
// BIM-Portal catalog and recorded as change-log entries.
package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/pb40development/ifc-normalizer/internal/normalize"
	"github.com/pb40development/ifc-normalizer/internal/portal"
	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
	"github.com/pb40development/ifc-normalizer/pkg/report"
)

// DefaultPsetName is the property set defaults are written to when an
// element carries none of its own.
const DefaultPsetName = "Pset_WallCommon"

// WatchedProperty is one property the engine checks on every element,
// with the default recorded when the element does not carry it.
type WatchedProperty struct {
	Name    string
	Default ifc.Value
}

// DefaultWatchList covers the wall properties checked out of the box.
func DefaultWatchList() []WatchedProperty {
	return []WatchedProperty{
		{Name: "FireRating", Default: ifc.NewLabel("T30")},
		{Name: "ThermalTransmittance", Default: ifc.NewReal(0.35)},
		{Name: "Gewerk", Default: ifc.NewBool(false)},
		{Name: "IsExternal", Default: ifc.NewBool(false)},
	}
}

// Resolver resolves a property name to its canonical portal definition.
// A nil definition with nil error means the catalog has no entry.
type Resolver interface {
	ResolveProperty(ctx context.Context, name string) (*portal.Definition, error)
}

// Engine normalizes element properties against the portal catalog.
type Engine struct {
	resolver Resolver
	matcher  *Matcher
	expander *normalize.Expander
	watch    []WatchedProperty
	psetName string

	// applyDefaults writes missing watched properties back into the
	// document. Off by default: the engine audits, it does not mutate.
	applyDefaults bool

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	def *portal.Definition
	err error
}

// Option configures the engine.
type Option func(*Engine)

// WithWatchList replaces the default watched property list.
func WithWatchList(watch []WatchedProperty) Option {
	return func(e *Engine) {
		if len(watch) > 0 {
			e.watch = watch
		}
	}
}

// WithExpander replaces the default synonym expander.
func WithExpander(expander *normalize.Expander) Option {
	return func(e *Engine) {
		if expander != nil {
			e.expander = expander
			e.matcher = NewMatcher(expander)
		}
	}
}

// WithApplyDefaults enables writing missing watched properties into the
// document with their default values.
func WithApplyDefaults(apply bool) Option {
	return func(e *Engine) { e.applyDefaults = apply }
}

// WithPsetName sets the property set that defaults are written to.
func WithPsetName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.psetName = name
		}
	}
}

// New creates an engine backed by the given resolver.
func New(resolver Resolver, opts ...Option) *Engine {
	expander := normalize.NewExpander(normalize.DefaultTable())
	e := &Engine{
		resolver: resolver,
		expander: expander,
		matcher:  NewMatcher(expander),
		watch:    DefaultWatchList(),
		psetName: DefaultPsetName,
		cache:    make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeDocument runs NormalizeElement over every wall in the document
// and aggregates the change log. Per-element failures are logged and
// skipped so one broken element does not fail the run.
func (e *Engine) NormalizeDocument(ctx context.Context, doc *ifc.Document) (*report.Report, error) {
	logger := logging.FromContext(ctx)

	var wallIDs []int
	for _, entityType := range []string{ifc.TypeWall, ifc.TypeWallStandardCase} {
		wallIDs = append(wallIDs, doc.IDsOfType(entityType)...)
	}
	logger.Info().Int("walls", len(wallIDs)).Msg("Normalizing walls")

	result := &report.Report{Walls: len(wallIDs)}
	for _, id := range wallIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := e.NormalizeElement(ctx, doc, id)
		if err != nil {
			logger.Warn().Err(err).Int("element_id", id).Msg("Skipping element")
			continue
		}
		result.Entries = append(result.Entries, entries...)
	}
	return result, nil
}

// NormalizeElement checks every watched property on one element. For
// each it locates the current value by tiered matching, resolves the
// canonical definition from the portal and emits a change-log entry.
// Properties whose resolution fails or that have no catalog entry are
// skipped; the element continues.
func (e *Engine) NormalizeElement(ctx context.Context, doc *ifc.Document, elementID int) ([]report.ChangeLogEntry, error) {
	logger := logging.FromContext(ctx)

	sets, err := CollectPropertySets(doc, elementID)
	if err != nil {
		return nil, err
	}
	props := AllProperties(sets)

	// Defaults all land in the same target set, created at most once.
	targetPset := 0
	for _, set := range sets {
		if strings.EqualFold(set.Name, e.psetName) {
			targetPset = set.ID
			break
		}
	}

	var entries []report.ChangeLogEntry
	for _, watched := range e.watch {
		// The local lookup stays strict; synonym matching applies only to
		// catalog resolution, where a false positive costs nothing.
		found, tier := e.matcher.FindLocal(watched.Name, props)

		def, err := e.resolve(ctx, watched.Name)
		if err != nil {
			logger.Warn().Err(err).
				Int("element_id", elementID).
				Str("property", watched.Name).
				Msg("Resolution failed, skipping property")
			continue
		}
		if def == nil {
			logger.Debug().
				Int("element_id", elementID).
				Str("property", watched.Name).
				Msg("No catalog entry, skipping property")
			continue
		}

		entry := report.ChangeLogEntry{
			ElementID:    elementID,
			PsetName:     e.psetNameFor(sets, found),
			PropertyName: watched.Name,
			PortalGUID:   def.GUID,
			Version:      def.VersionString(),
			DataType:     def.DataType,
			Units:        def.UnitsString(),
		}

		if found != nil && found.Value != nil {
			old := found.Value.Interface()
			entry.OldValue = old
			entry.NewValue = old
			logger.Debug().
				Int("element_id", elementID).
				Str("property", watched.Name).
				Str("tier", tier.String()).
				Msg("Property present")
		} else {
			entry.NewValue = watched.Default.Interface()
			if e.applyDefaults {
				// A synonym spelling counts as present for write-back, so a
				// wall carrying "Brandschutzklasse" does not also get a
				// default "FireRating".
				if existing, tier := e.matcher.Find(watched.Name, props); existing != nil {
					logger.Debug().
						Int("element_id", elementID).
						Str("property", watched.Name).
						Str("carried_as", existing.Name).
						Str("tier", tier.String()).
						Msg("Default skipped, synonym present")
				} else {
					psetID, err := e.writeDefault(doc, elementID, targetPset, watched)
					if err != nil {
						logger.Warn().Err(err).
							Int("element_id", elementID).
							Str("property", watched.Name).
							Msg("Failed to write default")
					} else {
						targetPset = psetID
					}
				}
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// resolve resolves a property definition with per-run caching. The name
// itself is tried first, then each synonym expansion until the portal
// returns a definition.
func (e *Engine) resolve(ctx context.Context, name string) (*portal.Definition, error) {
	key := normalize.Name(name)

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return cached.def, cached.err
	}
	e.mu.Unlock()

	def, err := e.resolveUncached(ctx, name)
	if err != nil {
		err = errors.NewResolutionError(name, "portal lookup failed", err)
	}

	// Context errors are not cached so a later run can still succeed.
	if ctx.Err() == nil {
		e.mu.Lock()
		e.cache[key] = &cacheEntry{def: def, err: err}
		e.mu.Unlock()
	}
	return def, err
}

func (e *Engine) resolveUncached(ctx context.Context, name string) (*portal.Definition, error) {
	def, err := e.resolver.ResolveProperty(ctx, name)
	if err != nil || def != nil {
		return def, err
	}
	for _, variant := range e.expander.Expand(name) {
		if variant == name {
			continue
		}
		def, err = e.resolver.ResolveProperty(ctx, variant)
		if err != nil || def != nil {
			return def, err
		}
	}
	return nil, nil
}

// psetNameFor reports which set a matched property came from, falling
// back to the engine's target set name for absent properties.
func (e *Engine) psetNameFor(sets []PropertySet, found *Property) string {
	if found != nil {
		for _, set := range sets {
			for i := range set.Properties {
				if set.Properties[i].ID == found.ID {
					return set.Name
				}
			}
		}
	}
	return e.psetName
}

// writeDefault adds the watched property with its default value to the
// element's target property set, creating and linking the set if it does
// not exist yet. Returns the express ID of the set used.
func (e *Engine) writeDefault(doc *ifc.Document, elementID, psetID int, watched WatchedProperty) (int, error) {
	if psetID == 0 {
		pset, err := doc.CreatePropertySet(e.psetName)
		if err != nil {
			return 0, err
		}
		if _, err := doc.LinkPropertySet(elementID, pset.ExpressID); err != nil {
			return 0, err
		}
		psetID = pset.ExpressID
	}
	if _, err := doc.AddSingleValue(psetID, watched.Name, watched.Default); err != nil {
		return psetID, err
	}
	return psetID, nil
}
