// Package georef relates geodetic coordinates, ECEF and an engine's floating
// local frame through a single georeferenced origin.
package georef

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"georefgo/pkg/geo"
	"georefgo/pkg/logging"
	"georefgo/pkg/observer"
)

// Placement selects where the origin comes from.
type Placement string

const (
	// PlacementCartographic uses the explicitly configured origin.
	PlacementCartographic Placement = "cartographic"
	// PlacementBoundingVolume derives the origin from registered providers.
	PlacementBoundingVolume Placement = "bounding_volume"
)

// Valid reports whether p is a known placement.
func (p Placement) Valid() bool {
	return p == PlacementCartographic || p == PlacementBoundingVolume
}

// Snapshot is a consistent copy of the georeference state.
type Snapshot struct {
	Origin         geo.Geodetic `json:"origin"`
	Placement      Placement    `json:"placement"`
	FloatingOrigin mgl64.Vec3   `json:"floating_origin"`
	Frame          EngineFrame  `json:"frame"`
	Radii          mgl64.Vec3   `json:"radii"`
	Transforms     TransformSet `json:"transforms"`
	Revision       uint64       `json:"revision"`
}

// Listener is told about every committed origin change.
type Listener interface {
	OnGeoreferenceUpdated(s Snapshot)
}

// Region is a geodetic box in degrees with a height range in meters.
type Region struct {
	Bounds    orb.Bound
	MinHeight float64
	MaxHeight float64
}

// Union returns the smallest region containing r and o.
func (r Region) Union(o Region) Region {
	return Region{
		Bounds:    r.Bounds.Union(o.Bounds),
		MinHeight: min(r.MinHeight, o.MinHeight),
		MaxHeight: max(r.MaxHeight, o.MaxHeight),
	}
}

// Center is the bound center at mid height.
func (r Region) Center() geo.Geodetic {
	c := r.Bounds.Center()
	return geo.Geodetic{
		Longitude: c.Lon(),
		Latitude:  c.Lat(),
		Height:    (r.MinHeight + r.MaxHeight) / 2,
	}
}

// BoundingVolumeProvider supplies a region when placement is bounding_volume.
// Returning false means the provider has nothing loaded yet.
type BoundingVolumeProvider interface {
	BoundingRegion() (Region, bool)
}

// Options configure a new Georeference.
type Options struct {
	Ellipsoid *geo.Ellipsoid
	Frame     EngineFrame
	Placement Placement
	Origin    geo.Geodetic
}

// DefaultOptions returns a WGS84, centimeter, left-handed setup at the
// default origin.
func DefaultOptions() Options {
	return Options{
		Ellipsoid: geo.WGS84,
		Frame:     DefaultEngineFrame(),
		Placement: PlacementCartographic,
		Origin:    geo.Geodetic{Longitude: -105.25737, Latitude: 39.736401, Height: 2250},
	}
}

func (o Options) validate() error {
	if o.Ellipsoid == nil {
		return fmt.Errorf("%w: nil ellipsoid", ErrInvalidArgument)
	}
	if err := o.Frame.Validate(); err != nil {
		return err
	}
	if !o.Placement.Valid() {
		return fmt.Errorf("%w: unknown placement %q", ErrInvalidArgument, o.Placement)
	}
	return validateOrigin(o.Origin)
}

func validateOrigin(g geo.Geodetic) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// Georeference owns the origin and the transforms derived from it.
// It is not safe for concurrent use.
type Georeference struct {
	ellipsoid  *geo.Ellipsoid
	frame      EngineFrame
	placement  Placement
	origin     geo.Geodetic
	floating   mgl64.Vec3
	transforms TransformSet
	revision   uint64

	listeners observer.Registry[Listener]
	providers observer.Registry[BoundingVolumeProvider]
	logger    *slog.Logger
}

// New validates opts and computes the initial transforms.
func New(opts Options) (*Georeference, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	g := &Georeference{
		ellipsoid: opts.Ellipsoid,
		frame:     opts.Frame,
		placement: opts.Placement,
		origin:    opts.Origin,
		logger:    slog.With("component", "georef"),
	}
	g.transforms = ComputeTransforms(g.ellipsoid, g.origin, g.frame)
	g.revision = 1
	return g, nil
}

// SetOrigin moves the origin, keeping the floating origin as is.
func (g *Georeference) SetOrigin(origin geo.Geodetic) error {
	if err := validateOrigin(origin); err != nil {
		return err
	}
	g.commit(origin, g.floating)
	return nil
}

// Rebase moves the origin and resets the floating origin in one update.
func (g *Georeference) Rebase(origin geo.Geodetic) error {
	if err := validateOrigin(origin); err != nil {
		return err
	}
	g.commit(origin, mgl64.Vec3{})
	return nil
}

// SetOriginFromBoundingVolumes places the origin at the center of all
// provider regions. Without any region it does nothing.
func (g *Georeference) SetOriginFromBoundingVolumes() error {
	if g.placement != PlacementBoundingVolume {
		return fmt.Errorf("%w: placement is %s", ErrWrongPlacement, g.placement)
	}

	agg, found := g.aggregateRegion()
	if !found {
		return nil
	}

	origin := agg.Center()
	if err := validateOrigin(origin); err != nil {
		return err
	}
	g.commit(origin, g.floating)
	return nil
}

func (g *Georeference) aggregateRegion() (Region, bool) {
	var (
		agg   Region
		found bool
	)
	g.providers.Notify(func(p BoundingVolumeProvider) {
		r, ok := p.BoundingRegion()
		if !ok {
			return
		}
		if !found {
			agg, found = r, true
			return
		}
		agg = agg.Union(r)
	})
	return agg, found
}

// UpdateGeoreference recomputes the transforms from the configured placement.
func (g *Georeference) UpdateGeoreference() error {
	if g.placement == PlacementBoundingVolume {
		return g.SetOriginFromBoundingVolumes()
	}
	g.commit(g.origin, g.floating)
	return nil
}

// Reconfigure replaces ellipsoid, frame, placement and the explicit origin
// together and notifies once. Nothing changes if opts is invalid.
func (g *Georeference) Reconfigure(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	origin := opts.Origin
	if opts.Placement == PlacementBoundingVolume {
		// without a region the current origin stays
		origin = g.origin
		if agg, ok := g.aggregateRegion(); ok {
			origin = agg.Center()
			if err := validateOrigin(origin); err != nil {
				return err
			}
		}
	}
	g.ellipsoid = opts.Ellipsoid
	g.frame = opts.Frame
	g.placement = opts.Placement
	g.commit(origin, g.floating)
	return nil
}

// PlaceOriginAtViewer moves the origin to the viewer and switches to
// cartographic placement.
func (g *Georeference) PlaceOriginAtViewer(viewerRelative mgl64.Vec3) error {
	target, ok := g.EngineToGeodetic(viewerRelative)
	if !ok {
		return fmt.Errorf("%w: viewer at ellipsoid center", ErrInvalidArgument)
	}
	if err := validateOrigin(target); err != nil {
		return err
	}
	g.placement = PlacementCartographic
	g.commit(target, mgl64.Vec3{})
	return nil
}

// ShiftFloatingOrigin advances the floating origin by delta engine units.
// The transforms do not change so listeners are not notified.
func (g *Georeference) ShiftFloatingOrigin(delta mgl64.Vec3) {
	g.floating = g.floating.Add(delta)
}

func (g *Georeference) commit(origin geo.Geodetic, floating mgl64.Vec3) {
	ts := ComputeTransforms(g.ellipsoid, origin, g.frame)

	g.origin = origin
	g.floating = floating
	g.transforms = ts
	g.revision++

	snap := g.Snapshot()
	n := g.listeners.Notify(func(l Listener) { l.OnGeoreferenceUpdated(snap) })
	logging.Trace(g.logger, "Georeference updated",
		"origin", origin.String(),
		"revision", g.revision,
		"listeners", n,
	)
}

// Snapshot returns a copy of the current state.
func (g *Georeference) Snapshot() Snapshot {
	return Snapshot{
		Origin:         g.origin,
		Placement:      g.placement,
		FloatingOrigin: g.floating,
		Frame:          g.frame,
		Radii:          g.ellipsoid.Radii(),
		Transforms:     g.transforms,
		Revision:       g.revision,
	}
}

// Origin is the current georeferenced origin.
func (g *Georeference) Origin() geo.Geodetic { return g.origin }

func (g *Georeference) Placement() Placement { return g.placement }

func (g *Georeference) Frame() EngineFrame { return g.frame }

func (g *Georeference) Ellipsoid() *geo.Ellipsoid { return g.ellipsoid }

// FloatingOrigin is the engine-absolute position of the engine's local zero.
func (g *Georeference) FloatingOrigin() mgl64.Vec3 { return g.floating }

func (g *Georeference) Transforms() TransformSet { return g.transforms }

// Revision increments on every commit.
func (g *Georeference) Revision() uint64 { return g.revision }

func (g *Georeference) ListenerCount() int { return g.listeners.Len() }

// AddListener registers l until RemoveListener is called.
func (g *Georeference) AddListener(l Listener) observer.Handle {
	return g.listeners.Add(l)
}

// AddWeakListener registers p without keeping it reachable.
func AddWeakListener[T any](g *Georeference, p *T) (observer.Handle, error) {
	return observer.AddWeak[T, Listener](&g.listeners, p)
}

// RemoveListener unregisters a listener handle.
func (g *Georeference) RemoveListener(h observer.Handle) bool {
	return g.listeners.Remove(h)
}

// AddBoundingVolumeProvider registers p for bounding_volume placement.
func (g *Georeference) AddBoundingVolumeProvider(p BoundingVolumeProvider) observer.Handle {
	return g.providers.Add(p)
}

// AddWeakBoundingVolumeProvider registers p without keeping it reachable.
func AddWeakBoundingVolumeProvider[T any](g *Georeference, p *T) (observer.Handle, error) {
	return observer.AddWeak[T, BoundingVolumeProvider](&g.providers, p)
}

// RemoveBoundingVolumeProvider unregisters a provider handle.
func (g *Georeference) RemoveBoundingVolumeProvider(h observer.Handle) bool {
	return g.providers.Remove(h)
}
