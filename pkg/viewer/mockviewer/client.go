package mockviewer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
	"georefgo/pkg/logging"
	"georefgo/pkg/viewer"
)

const (
	tickRateMs = 100

	// Distance at which a waypoint counts as reached.
	arrivalMeters = 1.0
)

// Config holds the simulated flight.
type Config struct {
	Start   geo.Geodetic
	Heading float64 // Degrees true, used when there is no route
	Speed   float64 // m/s
	Route   []geo.Geodetic
}

// MockClient implements viewer.Client and rebase.OriginShifter. It flies a
// great-circle route and keeps its true position on the ellipsoid, so an
// origin shift only needs to be recorded.
type MockClient struct {
	mu        sync.Mutex
	ellipsoid *geo.Ellipsoid
	config    Config
	tel       viewer.Telemetry
	waypoint  int
	paused    bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	trackBuf  *geo.TrackBuffer

	shifts    int
	lastShift mgl64.Vec3
	logger    *slog.Logger
}

// NewClient creates a mock viewer and starts its physics loop.
func NewClient(e *geo.Ellipsoid, cfg Config) *MockClient {
	m := newClient(e, cfg)
	m.wg.Add(1)
	go m.physicsLoop()
	return m
}

func newClient(e *geo.Ellipsoid, cfg Config) *MockClient {
	if e == nil {
		e = geo.WGS84
	}
	m := &MockClient{
		ellipsoid: e,
		config:    cfg,
		stopCh:    make(chan struct{}),
		trackBuf:  geo.NewTrackBuffer(5),
		logger:    slog.With("component", "mockviewer"),
	}
	m.tel.Position = cfg.Start
	m.tel.Ecef = e.GeodeticToEcef(cfg.Start)
	m.tel.Heading = cfg.Heading
	m.tel.GroundSpeed = cfg.Speed
	m.tel.Waypoint = -1
	if len(cfg.Route) > 0 {
		m.tel.Waypoint = 0
		m.tel.Heading = geo.Bearing(cfg.Start.Point(), cfg.Route[0].Point())
	}
	return m
}

// GetTelemetry returns the current state of the simulated viewer.
func (m *MockClient) GetTelemetry(ctx context.Context) (viewer.Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tel, nil
}

// GetState returns StateInactive while paused, StateActive otherwise.
func (m *MockClient) GetState() viewer.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		return viewer.StateInactive
	}
	return viewer.StateActive
}

// SetPaused freezes or resumes the flight.
func (m *MockClient) SetPaused(p bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = p
}

// SetSpeed changes the ground speed in m/s.
func (m *MockClient) SetSpeed(mps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mps < 0 {
		mps = 0
	}
	m.config.Speed = mps
}

// ShiftOrigin records a floating origin shift. The true position does not
// change; the engine-relative position is re-derived from it on every read.
func (m *MockClient) ShiftOrigin(delta mgl64.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts++
	m.lastShift = delta
	logging.Trace(m.logger, "Origin shifted", "delta", delta, "count", m.shifts)
}

// Shifts returns how many origin shifts were applied and the last delta.
func (m *MockClient) Shifts() (int, mgl64.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shifts, m.lastShift
}

// Close stops the physics loop and releases resources.
func (m *MockClient) Close() error {
	close(m.stopCh)
	m.wg.Wait()
	return nil
}

func (m *MockClient) physicsLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Duration(tickRateMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.update(float64(tickRateMs) / 1000.0)
		}
	}
}

// update advances the flight by dt seconds.
func (m *MockClient) update(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return
	}

	pos := m.tel.Position
	heading := m.tel.Heading
	remaining := m.config.Speed * dt
	climb := 0.0

	if len(m.config.Route) == 0 {
		if remaining > 0 {
			next := geo.DestinationPoint(pos.Point(), remaining, heading)
			pos.Latitude, pos.Longitude = next.Lat, next.Lon
		}
	} else {
		// Each pass either reaches a waypoint or spends the remaining distance
		for i := 0; remaining > 0 && i <= len(m.config.Route); i++ {
			target := m.config.Route[m.waypoint]
			dist := geo.Distance(pos.Point(), target.Point())
			if dist <= remaining || dist < arrivalMeters {
				climb += target.Height - pos.Height
				pos = target
				remaining -= dist
				m.waypoint = (m.waypoint + 1) % len(m.config.Route)
				m.logger.Debug("Waypoint reached", "next", m.waypoint)
				continue
			}
			heading = geo.Bearing(pos.Point(), target.Point())
			next := geo.DestinationPoint(pos.Point(), remaining, heading)
			h := pos.Height + (target.Height-pos.Height)*remaining/dist
			climb += h - pos.Height
			pos = geo.Geodetic{Longitude: next.Lon, Latitude: next.Lat, Height: h}
			remaining = 0
		}
		m.tel.Waypoint = m.waypoint
	}

	m.tel.Position = pos
	m.tel.Ecef = m.ellipsoid.GeodeticToEcef(pos)
	m.tel.GroundSpeed = m.config.Speed
	if dt > 0 {
		m.tel.VerticalSpeed = climb / dt
	}

	if m.config.Speed > 0 {
		m.tel.Heading = m.trackBuf.Push(pos.Point(), heading)
	} else {
		m.trackBuf.Reset()
		m.tel.Heading = heading
	}
	m.tel.Heading = math.Mod(m.tel.Heading+360, 360)
}
