package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vsatlink/termtrack/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Geofence GeofenceConfig `yaml:"geofence" mapstructure:"geofence"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Publish  PublishConfig  `yaml:"publish" mapstructure:"publish"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Sim      SimConfig      `yaml:"sim" mapstructure:"sim"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BoundaryConfig locates the administrative boundary dataset.
type BoundaryConfig struct {
	// Path is the boundary dataset file. Required for serve.
	Path string `yaml:"path" mapstructure:"path"`
	// Format is "geojson" or "shapefile". Default: geojson.
	Format string `yaml:"format" mapstructure:"format"`
	// StateField and DistrictField override the shapefile attribute names.
	StateField    string `yaml:"state_field" mapstructure:"state_field"`
	DistrictField string `yaml:"district_field" mapstructure:"district_field"`
}

// GeofenceConfig configures geofence bootstrapping.
type GeofenceConfig struct {
	// Fixtures is an optional YAML file of geofences loaded at startup.
	Fixtures string `yaml:"fixtures" mapstructure:"fixtures"`
}

// EngineConfig tunes the tracking engine.
type EngineConfig struct {
	Stripes int `yaml:"stripes" mapstructure:"stripes"`
}

// DispatchConfig tunes the async ingest dispatcher.
type DispatchConfig struct {
	Shards     int `yaml:"shards" mapstructure:"shards"`
	QueueDepth int `yaml:"queue_depth" mapstructure:"queue_depth"`
}

// PublishConfig tunes event fan-out.
type PublishConfig struct {
	SubscriberBuffer int `yaml:"subscriber_buffer" mapstructure:"subscriber_buffer"`
	SinkQueueDepth   int `yaml:"sink_queue_depth" mapstructure:"sink_queue_depth"`
}

// StoreConfig configures the telemetry history backend.
type StoreConfig struct {
	// Driver is "sqlite", "postgres", or "none". Default: sqlite.
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	Path        string            `yaml:"path" mapstructure:"path"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// SimConfig configures the telemetry simulator.
type SimConfig struct {
	Devices    int     `yaml:"devices" mapstructure:"devices"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	StepDeg    float64 `yaml:"step_deg" mapstructure:"step_deg"`
	Seed       int64   `yaml:"seed" mapstructure:"seed"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the fields required by the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	common := func() {
		if c.Boundary.Path == "" {
			problems = append(problems, "boundary.path is required")
		}
		switch c.Boundary.Format {
		case "geojson", "shapefile":
		default:
			problems = append(problems, "boundary.format must be geojson or shapefile")
		}
	}

	switch mode {
	case "serve":
		common()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "none":
		default:
			problems = append(problems, "store.driver must be sqlite, postgres, or none")
		}
		if c.Dispatch.Shards <= 0 {
			problems = append(problems, "dispatch.shards must be > 0")
		}
	case "simulate":
		common()
		if c.Sim.Devices <= 0 {
			problems = append(problems, "sim.devices must be > 0")
		}
		if c.Sim.RatePerSec <= 0 {
			problems = append(problems, "sim.rate_per_sec must be > 0")
		}
	case "validate":
		common()
	case "export":
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		default:
			problems = append(problems, "export requires store.driver sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TERMTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("boundary.format", "geojson")
	v.SetDefault("boundary.state_field", "NAME_1")
	v.SetDefault("boundary.district_field", "NAME_2")
	v.SetDefault("engine.stripes", 32)
	v.SetDefault("dispatch.shards", 8)
	v.SetDefault("dispatch.queue_depth", 256)
	v.SetDefault("publish.subscriber_buffer", 64)
	v.SetDefault("publish.sink_queue_depth", 1024)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "termtrack.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("sim.devices", 10)
	v.SetDefault("sim.rate_per_sec", 2.0)
	v.SetDefault("sim.step_deg", 0.05)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
