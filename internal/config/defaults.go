package config

const (
	defaultConfigPath    = "~/.config/archivist/config.toml"
	projectConfigName    = "archivist.toml"
	defaultFFprobeBinary = "ffprobe"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"

	// EnvSource, EnvTarget and EnvCatalog override the matching [paths] keys.
	EnvSource  = "ARCHIVIST_SOURCE"
	EnvTarget  = "ARCHIVIST_TARGET"
	EnvCatalog = "ARCHIVIST_DB"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Scan: Scan{
			SkipExtensions: []string{".xmp", ".pp3", ".pto"},
			IgnorePatterns: []string{},
		},
		Workflow: Workflow{
			FFprobeBinary: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
