package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"georefgo/pkg/db"
	"georefgo/pkg/geo"
)

// CheckFunc is a function that performs a health check.
// It returns nil if the check passes, or an error if it fails.
type CheckFunc func(ctx context.Context) error

// Probe represents a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // If true, a failure here should prevent application startup.
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// checkTimeout bounds a single probe.
const checkTimeout = 5 * time.Second

// Run executes a list of probes and returns their results.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}

	return results
}

// AnalyzeResults logs a summary and joins the errors of failed critical probes.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup Checks Summary")

	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}

		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		if r.Error != nil {
			slog.Error(msg, "error", r.Error)
			if r.Probe.Critical {
				criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
			}
		} else {
			slog.Info(msg)
		}
	}

	if len(criticalErrors) > 0 {
		return errors.Join(criticalErrors...)
	}

	return nil
}

// Database checks the connection and the tables the journal writes to.
func Database(d *db.DB) Probe {
	return Probe{
		Name:     "Database",
		Critical: true,
		Check: func(ctx context.Context) error {
			if err := d.PingContext(ctx); err != nil {
				return err
			}
			for _, table := range []string{"persistent_state", "origin_events", "sublevel_transitions"} {
				var name string
				err := d.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
				if err != nil {
					return fmt.Errorf("table %s: %w", table, err)
				}
			}
			return nil
		},
	}
}

// ListenAddress checks that the HTTP address can be bound.
func ListenAddress(addr string) Probe {
	return Probe{
		Name:     "Listen Address",
		Critical: true,
		Check: func(ctx context.Context) error {
			var lc net.ListenConfig
			l, err := lc.Listen(ctx, "tcp", addr)
			if err != nil {
				return err
			}
			return l.Close()
		},
	}
}

// maxRoundTripError is the largest geodetic/ECEF round trip drift accepted
// at the origin, in meters.
const maxRoundTripError = 1e-6

// Ellipsoid checks that the origin survives a geodetic/ECEF round trip on
// the configured ellipsoid.
func Ellipsoid(e *geo.Ellipsoid, origin geo.Geodetic) Probe {
	return Probe{
		Name:     "Ellipsoid",
		Critical: true,
		Check: func(ctx context.Context) error {
			ecef := e.GeodeticToEcef(origin)
			back, ok := e.EcefToGeodetic(ecef)
			if !ok {
				return errors.New("origin has no geodetic position")
			}
			if drift := e.GeodeticToEcef(back).Sub(ecef).Len(); drift > maxRoundTripError {
				return fmt.Errorf("round trip drift %.3gm at %s", drift, origin.String())
			}
			return nil
		},
	}
}

// Writable checks that files can be created in dir. Failures only warn.
func Writable(name, dir string) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return err
			}
			path := f.Name()
			_ = f.Close()
			return os.Remove(filepath.Clean(path))
		},
	}
}
