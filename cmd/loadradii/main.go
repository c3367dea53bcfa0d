// loadradii writes each configured sub-level's activation circle and origin
// as a GeoJSON FeatureCollection.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"georefgo/pkg/config"
	"georefgo/pkg/core"
	"georefgo/pkg/stream"
	"georefgo/pkg/sublevel"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "loadradii: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("loadradii", flag.ContinueOnError)
	cfgPath := fs.String("config", "configs/georef.yaml", "Path to the config file")
	out := fs.String("o", "", "Output file (default stdout)")
	segments := fs.Int("segments", stream.CircleSegments, "Vertices per circle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *segments < 3 {
		return fmt.Errorf("segments must be at least 3, got %d", *segments)
	}

	// Load would write a default file; this tool only reads
	if _, err := os.Stat(*cfgPath); err != nil {
		return fmt.Errorf("config not found: %w", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	_, levels, err := core.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	data, err := stream.LevelsFeatureCollection(levels, sublevel.NoLevelActive, *segments).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %d sub-levels to %s\n", len(levels), *out)
	return nil
}
