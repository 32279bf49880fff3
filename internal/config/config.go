package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"book-comps/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Estimator EstimatorConfig `mapstructure:"estimator"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Staleness StalenessConfig `mapstructure:"staleness"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// IngestConfig governs batch ingestion and listing sanity bounds.
type IngestConfig struct {
	Workers         int     `mapstructure:"workers"`
	MinPrice        float64 `mapstructure:"min_price"`
	MaxPrice        float64 `mapstructure:"max_price"`
	DefaultCurrency string  `mapstructure:"default_currency"`
}

// StatsConfig tunes statistics aggregation.
type StatsConfig struct {
	LookbackDays    int           `mapstructure:"lookback_days"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Platforms       []string      `mapstructure:"platforms"`
}

// EstimatorConfig names the active-to-sold fallback ratios.
type EstimatorConfig struct {
	MedianRatio float64 `mapstructure:"median_ratio"`
	MinRatio    float64 `mapstructure:"min_ratio"`
	MaxRatio    float64 `mapstructure:"max_ratio"`
}

// ScoringConfig exposes composite weights and the training gate thresholds.
type ScoringConfig struct {
	CompsCap           int     `mapstructure:"comps_cap"`
	CompsWeight        float64 `mapstructure:"comps_weight"`
	CompletenessWeight float64 `mapstructure:"completeness_weight"`
	ConsistencyWeight  float64 `mapstructure:"consistency_weight"`
	MaxSpread          float64 `mapstructure:"max_spread"`
	MinComps           int     `mapstructure:"min_comps"`
	MinMedian          float64 `mapstructure:"min_median"`
	MinScore           float64 `mapstructure:"min_score"`
}

// StalenessConfig sets per-category freshness windows.
type StalenessConfig struct {
	Bibliographic time.Duration `mapstructure:"bibliographic"`
	Market        time.Duration `mapstructure:"market"`
	SoldComps     time.Duration `mapstructure:"sold_comps"`
}

// RefreshConfig drives the snapshot refresh loop of the watch command.
type RefreshConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	BatchLimit    int           `mapstructure:"batch_limit"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKCOMPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bookcomps")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.min_price", 0.01)
	v.SetDefault("ingest.max_price", 10000.0)
	v.SetDefault("ingest.default_currency", "USD")

	v.SetDefault("stats.lookback_days", 365)
	v.SetDefault("stats.refresh_interval", "24h")
	v.SetDefault("stats.platforms", []string{"ebay", "mercari", "abebooks"})

	v.SetDefault("estimator.median_ratio", 0.75)
	v.SetDefault("estimator.min_ratio", 0.65)
	v.SetDefault("estimator.max_ratio", 0.85)

	v.SetDefault("scoring.comps_cap", 20)
	v.SetDefault("scoring.comps_weight", 0.5)
	v.SetDefault("scoring.completeness_weight", 0.3)
	v.SetDefault("scoring.consistency_weight", 0.2)
	v.SetDefault("scoring.max_spread", 2.0)
	v.SetDefault("scoring.min_comps", 8)
	v.SetDefault("scoring.min_median", 5.0)
	v.SetDefault("scoring.min_score", 0.6)

	v.SetDefault("staleness.bibliographic", "2160h")
	v.SetDefault("staleness.market", "24h")
	v.SetDefault("staleness.sold_comps", "168h")

	v.SetDefault("refresh.interval", "1h")
	v.SetDefault("refresh.align_to_bucket", true)
	v.SetDefault("refresh.startup_delay", "0s")
	v.SetDefault("refresh.batch_limit", 200)

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be greater than zero")
	}
	if c.Ingest.MinPrice <= 0 {
		return fmt.Errorf("ingest.min_price must be greater than zero")
	}
	if c.Ingest.MaxPrice <= c.Ingest.MinPrice {
		return fmt.Errorf("ingest.max_price must exceed ingest.min_price")
	}
	if c.Stats.LookbackDays <= 0 {
		return fmt.Errorf("stats.lookback_days must be greater than zero")
	}
	if c.Stats.RefreshInterval <= 0 {
		return fmt.Errorf("stats.refresh_interval must be greater than zero")
	}
	if c.Estimator.MedianRatio <= 0 || c.Estimator.MinRatio <= 0 || c.Estimator.MaxRatio <= 0 {
		return fmt.Errorf("estimator ratios must be greater than zero")
	}
	if c.Estimator.MinRatio > c.Estimator.MedianRatio || c.Estimator.MedianRatio > c.Estimator.MaxRatio {
		return fmt.Errorf("estimator ratios must satisfy min <= median <= max")
	}
	if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 1 {
		return fmt.Errorf("scoring.min_score must lie in [0, 1]")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
