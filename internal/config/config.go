// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // not applied to progress streams
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DataConfig struct {
	Root          string `yaml:"root"`
	ModisDir      string `yaml:"modis_dir"`     // raw per-country CSV exports
	ProcessedDir  string `yaml:"processed_dir"` // projected CSVs served to the map
	ParquetDir    string `yaml:"parquet_dir"`   // per-year partitions
	CombinedFile  string `yaml:"combined_file"` // downloaded dataset, input of repartition
	ModelFile     string `yaml:"model_file"`    // downloaded prediction package
	HistoryStart  int    `yaml:"history_start"`
	HistoryEnd    int    `yaml:"history_end"`
	DefaultPeriod int    `yaml:"default_periods"`
}

type ThrottleConfig struct {
	CPUThresholdPercent  float64       `yaml:"cpu_threshold_percent"`
	MemoryThresholdBytes uint64        `yaml:"memory_threshold_bytes"`
	SampleWindow         time.Duration `yaml:"sample_window"`
	CPUPause             time.Duration `yaml:"cpu_pause"`
	MemoryPause          time.Duration `yaml:"memory_pause"`
	Disabled             bool          `yaml:"disabled"`
}

type StreamConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	Grace        time.Duration `yaml:"grace"`
}

type JobsConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type ResultsConfig struct {
	Backend   string        `yaml:"backend"` // memory|redis
	TTL       time.Duration `yaml:"ttl"`
	SweepCron string        `yaml:"sweep_cron"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // optional; job history is disabled when empty
}

type StorageConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	Secure     bool   `yaml:"secure"`
	DatasetKey string `yaml:"dataset_key"`
	ModelKey   string `yaml:"model_key"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Stream   StreamConfig   `yaml:"stream"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Results  ResultsConfig  `yaml:"results"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML into a validated Config. Defaults are filled after
// decoding so derived values follow the file (queue_size from workers).
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config usable without a file (tests, local runs).
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 5000
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	d := &cfg.Data
	if d.Root == "" {
		d.Root = "./data"
	}
	if d.ModisDir == "" {
		d.ModisDir = "modis"
	}
	if d.ProcessedDir == "" {
		d.ProcessedDir = "processed"
	}
	if d.ParquetDir == "" {
		d.ParquetDir = "parquet"
	}
	if d.CombinedFile == "" {
		d.CombinedFile = "combined.parquet"
	}
	if d.ModelFile == "" {
		d.ModelFile = "fire_model.json"
	}
	if d.HistoryStart == 0 {
		d.HistoryStart = 2001
	}
	if d.HistoryEnd == 0 {
		d.HistoryEnd = 2024
	}
	if d.DefaultPeriod <= 0 {
		d.DefaultPeriod = 12
	}

	t := &cfg.Throttle
	if t.CPUThresholdPercent <= 0 {
		t.CPUThresholdPercent = 25
	}
	if t.MemoryThresholdBytes == 0 {
		t.MemoryThresholdBytes = 8 << 30
	}
	if t.SampleWindow <= 0 {
		t.SampleWindow = 200 * time.Millisecond
	}
	if t.CPUPause <= 0 {
		t.CPUPause = 500 * time.Millisecond
	}
	if t.MemoryPause <= 0 {
		t.MemoryPause = time.Second
	}

	s := &cfg.Stream
	if s.PollInterval <= 0 {
		s.PollInterval = 500 * time.Millisecond
	}
	if s.StaleAfter <= 0 {
		s.StaleAfter = 60 * time.Second
	}
	if s.Grace <= 0 {
		s.Grace = time.Second
	}

	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.QueueSize <= 0 {
		cfg.Jobs.QueueSize = cfg.Jobs.Workers * 4
	}

	if cfg.Results.Backend == "" {
		cfg.Results.Backend = "memory"
	}
	cfg.Results.TTL = normalizeTTL(cfg.Results.TTL)
	if cfg.Results.SweepCron == "" {
		cfg.Results.SweepCron = "@every 1m"
	}

	if cfg.Storage.DatasetKey == "" {
		cfg.Storage.DatasetKey = "modis/combined.parquet"
	}
	if cfg.Storage.ModelKey == "" {
		cfg.Storage.ModelKey = "models/fire_model.json"
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Data.HistoryEnd < c.Data.HistoryStart {
		return errors.New("data.history_end must not be before data.history_start")
	}
	switch strings.ToLower(c.Results.Backend) {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when results.backend=redis")
		}
	default:
		return fmt.Errorf("results.backend %q not supported", c.Results.Backend)
	}
	return nil
}

// Path joins elements under the data root.
func (d DataConfig) Path(elem ...string) string {
	return filepath.Join(append([]string{d.Root}, elem...)...)
}

// HistoryYears is the inclusive historical range used by forecasts.
func (d DataConfig) HistoryYears() []int {
	years := make([]int, 0, d.HistoryEnd-d.HistoryStart+1)
	for y := d.HistoryStart; y <= d.HistoryEnd; y++ {
		years = append(years, y)
	}
	return years
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
