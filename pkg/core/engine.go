package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"georefgo/pkg/config"
	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
	"georefgo/pkg/logging"
	"georefgo/pkg/metrics"
	"georefgo/pkg/rebase"
	"georefgo/pkg/store"
	"georefgo/pkg/stream"
	"georefgo/pkg/sublevel"
	"georefgo/pkg/sunsky"
	"georefgo/pkg/viewer"
)

// ErrNoViewer is returned by operations that need a viewer position before
// the first active frame.
var ErrNoViewer = errors.New("no viewer position yet")

// Commit causes recorded in the journal.
const (
	CauseInitialize = "initialize"
	CauseRestore    = "restore"
	CauseConfig     = "config"
	CauseAPI        = "api"
	CauseViewer     = "viewer"
	CauseRebase     = "rebase"
	CauseSubLevel   = "sublevel"
)

const commandQueueSize = 64

// Snapshot is the read-only view published after every frame that changed
// something and after every command. Readers must not modify it.
type Snapshot struct {
	SessionID      string           `json:"session_id"`
	Georeference   georef.Snapshot  `json:"georeference"`
	Levels         []sublevel.Level `json:"levels"`
	ActiveIndex    int              `json:"active_index"`
	ActiveID       string           `json:"active_id,omitempty"`
	Loaded         []string         `json:"loaded"`
	Viewer         *Frame           `json:"viewer,omitempty"`
	ViewerState    viewer.State     `json:"viewer_state"`
	RebaseSettings rebase.Settings  `json:"rebase_settings"`
	Rebases        uint64           `json:"rebases"`
	LastRebase     rebase.Result    `json:"last_rebase"`
	Sun            *sunsky.Position `json:"sun,omitempty"`
	PublishedAt    time.Time        `json:"published_at"`
}

// Deps are the collaborators of an Engine. All of them may be nil.
type Deps struct {
	Shifter  rebase.OriginShifter
	Streamer *stream.LoggingStreamer
	Journal  store.JournalStore
	Metrics  *metrics.Collector
	Now      func() time.Time
}

type commandResult struct {
	value any
	err   error
}

type command struct {
	name  string
	fn    func(ctx context.Context) (any, error)
	reply chan commandResult
}

// Engine owns the georeference, the rebase monitor and the sub-level
// switcher. Everything except Submit, Snapshot and OnPublish runs on the
// scheduler goroutine.
type Engine struct {
	cfg      config.Provider
	geo      *georef.Georeference
	monitor  *rebase.Monitor
	switcher *sublevel.Switcher
	streamer *stream.LoggingStreamer
	sky      *sunsky.Sky
	metrics  *metrics.Collector
	journal  store.JournalStore
	now      func() time.Time

	sessionID   string
	cause       string
	lastFrame   *Frame
	viewerState viewer.State
	dirty       bool
	sunEnabled  bool

	commands  chan command
	snapshot  atomic.Pointer[Snapshot]
	onPublish []func(*Snapshot)
	logger    *slog.Logger
}

// NewEngine builds the georeference and its collaborators from the static
// configuration. Runtime overrides are applied by Initialize.
func NewEngine(cfg config.Provider, deps Deps) (*Engine, error) {
	opts, levels, err := OptionsFromConfig(cfg.AppConfig())
	if err != nil {
		return nil, err
	}

	g, err := georef.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create georeference: %w", err)
	}

	e := &Engine{
		cfg:         cfg,
		geo:         g,
		streamer:    deps.Streamer,
		metrics:     deps.Metrics,
		journal:     deps.Journal,
		now:         deps.Now,
		sessionID:   uuid.NewString(),
		viewerState: viewer.StateDisconnected,
		commands:    make(chan command, commandQueueSize),
		logger:      slog.With("component", "engine"),
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.streamer == nil {
		e.streamer = stream.NewLoggingStreamer()
	}

	e.switcher, err = sublevel.NewSwitcher(g, e.streamer, levels)
	if err != nil {
		return nil, err
	}
	e.switcher.OnSwitch(e.onSwitch)

	e.monitor, err = rebase.NewMonitor(g, deps.Shifter, e.switcher, rebase.DefaultSettings())
	if err != nil {
		return nil, err
	}

	g.AddListener(e)
	g.AddBoundingVolumeProvider(e.streamer)
	if e.metrics != nil {
		g.AddListener(e.metrics)
	}
	e.sky = sunsky.New(e.now)
	if _, err := georef.AddWeakListener(g, e.sky); err != nil {
		return nil, err
	}

	return e, nil
}

// OptionsFromConfig maps the file configuration to georeference options and
// sub-level declarations.
func OptionsFromConfig(c *config.Config) (georef.Options, []sublevel.Level, error) {
	e, err := geo.NewEllipsoid(c.Ellipsoid.RadiusX, c.Ellipsoid.RadiusY, c.Ellipsoid.RadiusZ)
	if err != nil {
		return georef.Options{}, nil, err
	}
	opts := georef.Options{
		Ellipsoid: e,
		Frame: georef.EngineFrame{
			UnitsPerMeter: c.Engine.UnitsPerMeter,
			LeftHanded:    c.Engine.LeftHanded,
		},
		Placement: georef.Placement(c.Georeference.Placement),
		Origin: geo.Geodetic{
			Longitude: c.Georeference.Longitude,
			Latitude:  c.Georeference.Latitude,
			Height:    c.Georeference.Height,
		},
	}

	levels := make([]sublevel.Level, 0, len(c.SubLevels))
	for _, sl := range c.SubLevels {
		levels = append(levels, sublevel.Level{
			ID:         sl.ID,
			Origin:     geo.Geodetic{Longitude: sl.Longitude, Latitude: sl.Latitude, Height: sl.Height},
			LoadRadius: sl.LoadRadius.Meters(),
		})
	}
	return opts, levels, nil
}

// Georeference exposes the georeference to code on the scheduler goroutine.
func (e *Engine) Georeference() *georef.Georeference { return e.geo }

// Switcher exposes the sub-level switcher to code on the scheduler goroutine.
func (e *Engine) Switcher() *sublevel.Switcher { return e.switcher }

// Monitor exposes the rebase monitor to code on the scheduler goroutine.
func (e *Engine) Monitor() *rebase.Monitor { return e.monitor }

// Sky returns the sun tracker, nil when disabled.
func (e *Engine) Sky() *sunsky.Sky {
	if !e.sunEnabled {
		return nil
	}
	return e.sky
}

// SessionID identifies this run in the journal.
func (e *Engine) SessionID() string { return e.sessionID }

// Initialize applies runtime overrides and commits the configured origin.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.ApplyOverrides(ctx); err != nil {
		return err
	}
	e.cause = CauseInitialize
	if err := e.geo.UpdateGeoreference(); err != nil {
		return fmt.Errorf("failed to initialize georeference: %w", err)
	}
	e.publish()
	e.logger.Info("Engine initialized",
		"session", e.sessionID,
		"origin", e.geo.Origin().String(),
		"placement", e.geo.Placement(),
		"sublevels", len(e.switcher.Levels()),
	)
	return nil
}

// ApplyOverrides reads the rebase and sun settings from the config provider.
func (e *Engine) ApplyOverrides(ctx context.Context) error {
	if sun := e.cfg.SunSkyEnabled(ctx); sun != e.sunEnabled {
		e.sunEnabled = sun
		e.dirty = true
	}

	s := rebase.Settings{
		Enabled:         e.cfg.RebaseEnabled(ctx),
		MaxDistance:     e.cfg.MaxOriginDistance(ctx),
		InsideSubLevels: e.cfg.RebaseInsideSubLevels(ctx),
	}
	if err := e.monitor.SetSettings(s); err != nil {
		return err
	}
	logging.Trace(e.logger, "Rebase settings applied", "settings", s)
	return nil
}

// OnConfigChanged applies a reloaded configuration file in one origin commit.
// An active sub-level that is still declared keeps the origin. Invalid
// configurations leave the engine untouched.
func (e *Engine) OnConfigChanged(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, levels, err := OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := sublevel.ValidateLevels(levels); err != nil {
		return err
	}

	if l, ok := e.switcher.Surviving(levels); ok {
		opts.Origin = l.Origin
	}

	e.cause = CauseConfig
	if err := e.geo.Reconfigure(opts); err != nil {
		return err
	}
	if err := e.switcher.SetLevels(levels); err != nil {
		return err
	}
	*e.cfg.AppConfig() = *cfg
	if err := e.ApplyOverrides(ctx); err != nil {
		return err
	}
	e.publish()
	e.logger.Info("Configuration applied", "placement", opts.Placement, "sublevels", len(levels))
	return nil
}

// Tick derives this frame's viewer positions.
func (e *Engine) Tick(ctx context.Context, tel *viewer.Telemetry) *Frame {
	f := &Frame{
		Now:       e.now(),
		Telemetry: *tel,
		Relative:  viewer.Relative(e.geo, tel),
		Absolute:  viewer.Absolute(e.geo, tel),
		Revision:  e.geo.Revision(),
	}
	e.lastFrame = f
	return f
}

// Refresh re-derives f's engine positions after the origin moved during
// the frame.
func (e *Engine) Refresh(f *Frame) {
	f.Relative = viewer.Relative(e.geo, &f.Telemetry)
	f.Absolute = viewer.Absolute(e.geo, &f.Telemetry)
	f.Revision = e.geo.Revision()
}

// SetViewerState records the viewer source state for the snapshot.
func (e *Engine) SetViewerState(s viewer.State) {
	if s != e.viewerState {
		e.dirty = true
	}
	e.viewerState = s
}

// SetCause labels the origin commits that follow.
func (e *Engine) SetCause(cause string) {
	e.cause = cause
}

// MarkDirty forces the next PublishIfDirty to publish.
func (e *Engine) MarkDirty() {
	e.dirty = true
}

// --- Listener / hooks ---

// OnGeoreferenceUpdated implements georef.Listener. It journals the commit
// under the cause set by the operation that triggered it.
func (e *Engine) OnGeoreferenceUpdated(s georef.Snapshot) {
	e.dirty = true
	cause := e.cause
	if cause == "" {
		cause = CauseAPI
	}
	e.metrics.ObserveNotifications(e.geo.ListenerCount())

	ev := &store.OriginEvent{
		SessionID: e.sessionID,
		Revision:  s.Revision,
		Cause:     cause,
		Placement: string(s.Placement),
		Longitude: s.Origin.Longitude,
		Latitude:  s.Origin.Latitude,
		Height:    s.Origin.Height,
		Floating:  [3]float64(s.FloatingOrigin),
		CreatedAt: e.now().UTC(),
	}
	if e.journal != nil {
		if err := e.journal.AppendOriginEvent(context.Background(), ev); err != nil {
			e.logger.Warn("Failed to journal origin event", "error", err)
		}
	}
	logging.LogEvent(&logging.Event{
		Timestamp: ev.CreatedAt,
		Type:      cause,
		Title:     "Origin " + s.Origin.String(),
		Summary:   fmt.Sprintf("revision %d", s.Revision),
	})
}

func (e *Engine) onSwitch(tr sublevel.Transition) {
	e.dirty = true
	e.metrics.ObserveSwitch(tr.To)
	if e.journal != nil {
		err := e.journal.AppendTransition(context.Background(), &store.Transition{
			SessionID: e.sessionID,
			FromID:    tr.FromID,
			ToID:      tr.ToID,
			FromIndex: tr.From,
			ToIndex:   tr.To,
			CreatedAt: e.now().UTC(),
		})
		if err != nil {
			e.logger.Warn("Failed to journal transition", "error", err)
		}
	}
	title := "Left " + tr.FromID
	if tr.ToID != "" {
		title = "Entered " + tr.ToID
	}
	logging.LogEvent(&logging.Event{Timestamp: e.now(), Type: CauseSubLevel, Title: title})

	// the streamer's regions changed with the switch
	if e.geo.Placement() == georef.PlacementBoundingVolume {
		if err := e.geo.UpdateGeoreference(); err != nil {
			e.logger.Warn("Failed to update origin from bounding volumes", "error", err)
		}
	}
}

// --- Publishing ---

// OnPublish registers fn to receive every published snapshot. Register
// before the scheduler starts.
func (e *Engine) OnPublish(fn func(*Snapshot)) {
	e.onPublish = append(e.onPublish, fn)
}

// Snapshot returns the last published snapshot. Safe from any goroutine.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Publish stores a fresh snapshot and hands it to the OnPublish hooks.
func (e *Engine) Publish() {
	e.publish()
}

// PublishIfDirty publishes only when state changed since the last publish.
func (e *Engine) PublishIfDirty() bool {
	if !e.dirty {
		return false
	}
	e.publish()
	return true
}

func (e *Engine) publish() {
	e.dirty = false
	_, active, _ := e.switcher.Current()
	s := &Snapshot{
		SessionID:      e.sessionID,
		Georeference:   e.geo.Snapshot(),
		Levels:         e.switcher.Levels(),
		ActiveIndex:    active,
		Loaded:         e.streamer.Loaded(),
		ViewerState:    e.viewerState,
		RebaseSettings: e.monitor.Settings(),
		Rebases:        e.monitor.Count(),
		LastRebase:     e.monitor.Last(),
		PublishedAt:    e.now(),
	}
	if l, _, ok := e.switcher.Current(); ok {
		s.ActiveID = l.ID
	}
	if e.lastFrame != nil {
		f := *e.lastFrame
		s.Viewer = &f
	}
	if sky := e.Sky(); sky != nil {
		if p, ok := sky.Current(); ok {
			s.Sun = &p
		}
	}
	e.snapshot.Store(s)
	for _, fn := range e.onPublish {
		fn(s)
	}
}

// --- Commands ---

// Submit queues fn for the scheduler goroutine and waits for its result.
// A snapshot is published before the reply.
func (e *Engine) Submit(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	cmd := command{name: name, fn: fn, reply: make(chan commandResult, 1)}
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DrainCommands runs every queued command. It returns how many ran.
func (e *Engine) DrainCommands(ctx context.Context) int {
	n := 0
	for {
		select {
		case cmd := <-e.commands:
			e.cause = CauseAPI
			v, err := cmd.fn(ctx)
			if err != nil {
				e.metrics.ObserveRejected(cmd.name)
				e.logger.Warn("Command rejected", "command", cmd.name, "error", err)
			}
			e.publish()
			cmd.reply <- commandResult{value: v, err: err}
			n++
		default:
			return n
		}
	}
}

// SetOrigin moves the origin from outside the scheduler goroutine.
func (e *Engine) SetOrigin(ctx context.Context, g geo.Geodetic) (georef.Snapshot, error) {
	v, err := e.Submit(ctx, "set_origin", func(ctx context.Context) (any, error) {
		if err := e.geo.SetOrigin(g); err != nil {
			return nil, err
		}
		return e.geo.Snapshot(), nil
	})
	if err != nil {
		return georef.Snapshot{}, err
	}
	return v.(georef.Snapshot), nil
}

// PlaceOriginAtViewer moves the origin under the last known viewer position.
func (e *Engine) PlaceOriginAtViewer(ctx context.Context) (georef.Snapshot, error) {
	v, err := e.Submit(ctx, "origin_here", func(ctx context.Context) (any, error) {
		if e.lastFrame == nil {
			return nil, ErrNoViewer
		}
		e.cause = CauseViewer
		rel := viewer.Relative(e.geo, &e.lastFrame.Telemetry)
		if err := e.geo.PlaceOriginAtViewer(rel); err != nil {
			return nil, err
		}
		return e.geo.Snapshot(), nil
	})
	if err != nil {
		return georef.Snapshot{}, err
	}
	return v.(georef.Snapshot), nil
}

// SelectSubLevel activates level k.
func (e *Engine) SelectSubLevel(ctx context.Context, k int) error {
	_, err := e.Submit(ctx, "select_sublevel", func(ctx context.Context) (any, error) {
		e.cause = CauseSubLevel
		return nil, e.switcher.SelectByIndex(k)
	})
	return err
}

// JumpToCurrentLevel re-applies the active level's origin.
func (e *Engine) JumpToCurrentLevel(ctx context.Context) error {
	_, err := e.Submit(ctx, "jump_sublevel", func(ctx context.Context) (any, error) {
		e.cause = CauseSubLevel
		return nil, e.switcher.JumpToCurrentLevel()
	})
	return err
}

// Reload applies cfg on the scheduler goroutine.
func (e *Engine) Reload(ctx context.Context, cfg *config.Config) error {
	_, err := e.Submit(ctx, "reload", func(ctx context.Context) (any, error) {
		return nil, e.OnConfigChanged(ctx, cfg)
	})
	return err
}

// RefreshOverrides re-reads runtime overrides on the scheduler goroutine.
func (e *Engine) RefreshOverrides(ctx context.Context) error {
	_, err := e.Submit(ctx, "overrides", func(ctx context.Context) (any, error) {
		return nil, e.ApplyOverrides(ctx)
	})
	return err
}
