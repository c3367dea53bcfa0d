package config

// Persistent state keys (Registry)
const (
	KeyRebaseEnabled         = "rebase_enabled"
	KeyMaxOriginDistance     = "max_origin_distance"
	KeyRebaseInsideSubLevels = "rebase_inside_sublevels"
	KeySunSkyEnabled         = "sunsky_enabled"
	KeyViewerSpeed           = "viewer_speed"
	KeyActiveSubLevel        = "active_sublevel"
	KeyLastOrigin            = "last_origin"
)

// OverridableKeys can be changed at runtime through the API.
var OverridableKeys = map[string]bool{
	KeyRebaseEnabled:         true,
	KeyMaxOriginDistance:     true,
	KeyRebaseInsideSubLevels: true,
	KeySunSkyEnabled:         true,
	KeyViewerSpeed:           true,
}
