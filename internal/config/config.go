package config

type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Storage StorageConfig
	Tracker TrackerConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type EngineConfig struct {
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type TrackerConfig struct {
	// TickInterval is a duration string, e.g. "2s".
	TickInterval string
	// MaxStep bounds how much progress a tracked generation may gain per tick.
	MaxStep int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		Engine: EngineConfig{
			BaseURL: "",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Tracker: TrackerConfig{
			TickInterval: "2s",
			MaxStep:      5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/unqflow/config.json, then applies UNQFLOW_*
// environment variable overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
