package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Graph     GraphConfig     `yaml:"graph" mapstructure:"graph"`
	Scenario  ScenarioConfig  `yaml:"scenario" mapstructure:"scenario"`
	Router    RouterConfig    `yaml:"router" mapstructure:"router"`
	Allocator AllocatorConfig `yaml:"allocator" mapstructure:"allocator"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// RateLimit is the steady request rate allowed per client, per second.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// StoreConfig configures the scenario archive backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GraphConfig configures road-network loading.
type GraphConfig struct {
	// DatasetPath is a node-link JSON dataset loaded at startup. Empty means
	// start with the built-in demo grid.
	DatasetPath string `yaml:"dataset_path" mapstructure:"dataset_path"`
	// GridSize is the side length of the demo grid when no dataset is given.
	GridSize int `yaml:"grid_size" mapstructure:"grid_size"`
}

// ScenarioConfig parameterizes the damage policy. The defaults reproduce the
// reference earthquake model; every knob is exposed so operators can tune the
// curve without a rebuild.
type ScenarioConfig struct {
	MinMagnitude float64 `yaml:"min_magnitude" mapstructure:"min_magnitude"`
	MaxMagnitude float64 `yaml:"max_magnitude" mapstructure:"max_magnitude"`
	// BridgeFactor multiplies damage probability on bridge edges.
	BridgeFactor float64 `yaml:"bridge_factor" mapstructure:"bridge_factor"`
	// DecayKm sets the half-intensity distance of the epicentral decay curve.
	DecayKm float64 `yaml:"decay_km" mapstructure:"decay_km"`
	// DecayFloor keeps a residual damage probability at any distance, so
	// isolated severe damage can still appear far from the epicenter.
	DecayFloor float64 `yaml:"decay_floor" mapstructure:"decay_floor"`
	// DamagedMin/Max bound the score drawn for a damaged edge.
	DamagedMin float64 `yaml:"damaged_min" mapstructure:"damaged_min"`
	DamagedMax float64 `yaml:"damaged_max" mapstructure:"damaged_max"`
	// BaselineMax bounds the low-noise score drawn for an undamaged edge.
	BaselineMax float64 `yaml:"baseline_max" mapstructure:"baseline_max"`
	// CriticalThreshold is the score at which an edge becomes impassable.
	CriticalThreshold float64 `yaml:"critical_threshold" mapstructure:"critical_threshold"`
	// PresetsPath optionally overrides the built-in preset catalog.
	PresetsPath string `yaml:"presets_path" mapstructure:"presets_path"`
}

// RouterConfig parameterizes risk-weighted path search.
type RouterConfig struct {
	// SlowdownFactor inflates travel time on damaged edges.
	SlowdownFactor float64 `yaml:"slowdown_factor" mapstructure:"slowdown_factor"`
	// RiskPenalty is the additive cost, in minutes, of traversing a fully
	// damaged edge even when it is time-optimal.
	RiskPenalty float64 `yaml:"risk_penalty" mapstructure:"risk_penalty"`
	// MaxSnapMeters bounds how far a query coordinate may sit from the
	// nearest graph node.
	MaxSnapMeters float64 `yaml:"max_snap_m" mapstructure:"max_snap_m"`
	// SearchTimeout aborts pathological searches.
	SearchTimeout time.Duration `yaml:"search_timeout" mapstructure:"search_timeout"`
	// UseAStar enables the straight-line heuristic; Dijkstra otherwise.
	UseAStar bool `yaml:"use_astar" mapstructure:"use_astar"`
}

// AllocatorConfig parameterizes greedy resource assignment.
type AllocatorConfig struct {
	// MaxParallelProbes caps concurrent route-cost computations per zone.
	MaxParallelProbes int `yaml:"max_parallel_probes" mapstructure:"max_parallel_probes"`
	// ReplanPerturbation is the urgency delta used when probing for better
	// alternative assignments in recommendations.
	ReplanPerturbation float64 `yaml:"replan_perturbation" mapstructure:"replan_perturbation"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPTILOGISTIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "optilogistix.db")
	v.SetDefault("graph.dataset_path", "")
	v.SetDefault("graph.grid_size", 5)
	v.SetDefault("scenario.min_magnitude", 4.0)
	v.SetDefault("scenario.max_magnitude", 9.0)
	v.SetDefault("scenario.bridge_factor", 1.5)
	v.SetDefault("scenario.decay_km", 2.0)
	v.SetDefault("scenario.decay_floor", 0.05)
	v.SetDefault("scenario.damaged_min", 0.3)
	v.SetDefault("scenario.damaged_max", 1.0)
	v.SetDefault("scenario.baseline_max", 0.2)
	v.SetDefault("scenario.critical_threshold", 0.8)
	v.SetDefault("router.slowdown_factor", 2.0)
	v.SetDefault("router.risk_penalty", 10.0)
	v.SetDefault("router.max_snap_m", 500.0)
	v.SetDefault("router.search_timeout", 2*time.Second)
	v.SetDefault("router.use_astar", true)
	v.SetDefault("allocator.max_parallel_probes", 8)
	v.SetDefault("allocator.replan_perturbation", 0.2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
