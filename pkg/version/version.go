package version

// Version is the release of georefd. It is overridden at build time with
// -ldflags "-X georefgo/pkg/version.Version=...".
var Version = "v0.3.0"

// Info is what /api/version reports.
type Info struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// Current returns the running build's Info.
func Current() Info {
	return Info{Version: Version, Service: "georefd"}
}
