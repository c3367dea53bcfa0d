package config

import (
	"context"
	"strconv"
	"time"

	"georefgo/pkg/store"
)

// Provider overlays runtime overrides from the state store on the static file.
type Provider interface {
	// Rebasing
	RebaseEnabled(ctx context.Context) bool
	MaxOriginDistance(ctx context.Context) float64
	RebaseInsideSubLevels(ctx context.Context) bool

	// Ambient
	SunSkyEnabled(ctx context.Context) bool
	ViewerSpeed(ctx context.Context) float64
	FrameLoop(ctx context.Context) time.Duration

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. st may be nil.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) RebaseEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeyRebaseEnabled, p.base.Georeference.KeepOriginNearViewer)
}

// MaxOriginDistance is in meters. Stored overrides accept distance units.
func (p *UnifiedProvider) MaxOriginDistance(ctx context.Context) float64 {
	fallback := p.base.Georeference.MaxOriginDistance.Meters()
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, KeyMaxOriginDistance); ok && val != "" {
			if d, err := ParseDistance(val); err == nil && d > 0 {
				return d
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) RebaseInsideSubLevels(ctx context.Context) bool {
	return p.getBool(ctx, KeyRebaseInsideSubLevels, p.base.Georeference.RebaseInsideSubLevels)
}

func (p *UnifiedProvider) SunSkyEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeySunSkyEnabled, p.base.SunSky.Enabled)
}

func (p *UnifiedProvider) ViewerSpeed(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyViewerSpeed, p.base.Viewer.Mock.Speed)
}

func (p *UnifiedProvider) FrameLoop(ctx context.Context) time.Duration {
	return time.Duration(p.base.Ticker.FrameLoop)
}

// --- Helpers ---

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
