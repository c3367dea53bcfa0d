// Package stream stands in for the engine's level streaming.
package stream

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	orbgeo "github.com/paulmach/orb/geo"

	"georefgo/pkg/georef"
	"georefgo/pkg/logging"
	"georefgo/pkg/sublevel"
)

// LoggingStreamer implements sublevel.Streamer by tracking which levels are
// loaded and writing every request to the event log. It also reports the
// loaded levels' extent as a georef.BoundingVolumeProvider.
type LoggingStreamer struct {
	mu      sync.RWMutex
	loaded  map[string]sublevel.Level
	loads   int
	unloads int
	logger  *slog.Logger
}

// NewLoggingStreamer returns a streamer with nothing loaded.
func NewLoggingStreamer() *LoggingStreamer {
	return &LoggingStreamer{
		loaded: make(map[string]sublevel.Level),
		logger: slog.With("component", "stream"),
	}
}

// Load marks l as loaded.
func (s *LoggingStreamer) Load(l sublevel.Level) {
	s.mu.Lock()
	s.loaded[l.ID] = l
	s.loads++
	s.mu.Unlock()

	s.logger.Info("Level load requested", "id", l.ID)
	logging.LogEvent(&logging.Event{
		Timestamp: time.Now(),
		Type:      "stream",
		Title:     "Load " + l.ID,
		Summary:   l.Origin.String(),
	})
}

// Unload marks l as unloaded. Unloading a level that is not loaded is logged
// and otherwise ignored.
func (s *LoggingStreamer) Unload(l sublevel.Level) {
	s.mu.Lock()
	_, ok := s.loaded[l.ID]
	delete(s.loaded, l.ID)
	s.unloads++
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("Unload of a level that is not loaded", "id", l.ID)
	} else {
		s.logger.Info("Level unload requested", "id", l.ID)
	}
	logging.LogEvent(&logging.Event{
		Timestamp: time.Now(),
		Type:      "stream",
		Title:     "Unload " + l.ID,
	})
}

// Loaded returns the ids of the loaded levels, sorted.
func (s *LoggingStreamer) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.loaded))
	for id := range s.loaded {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Counts returns the number of load and unload requests seen.
func (s *LoggingStreamer) Counts() (loads, unloads int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads, s.unloads
}

// BoundingRegion covers every loaded level's activation circle.
func (s *LoggingStreamer) BoundingRegion() (georef.Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out georef.Region
	found := false
	for _, l := range s.loaded {
		r := LevelRegion(l)
		if !found {
			out, found = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, found
}

// LevelRegion is the bound around a level's origin with its load radius.
func LevelRegion(l sublevel.Level) georef.Region {
	return georef.Region{
		Bounds:    orbgeo.NewBoundAroundPoint(l.Origin.Point().Orb(), l.LoadRadius),
		MinHeight: l.Origin.Height,
		MaxHeight: l.Origin.Height,
	}
}

func (s *LoggingStreamer) String() string {
	loads, unloads := s.Counts()
	return fmt.Sprintf("LoggingStreamer(loaded=%v loads=%d unloads=%d)", s.Loaded(), loads, unloads)
}
