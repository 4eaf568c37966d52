package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config is the root configuration of a tabledb node.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	// TableOpts are engine-wide defaults merged under every create request,
	// using the same keys as the request options.
	TableOpts map[string]string `yaml:"table_opts"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StorageConfig describes the on-disk layout. Empty sub directories default
// to children of DataDir.
type StorageConfig struct {
	DataDir        string `yaml:"data_dir"`
	WALDir         string `yaml:"wal_dir"`
	ManifestDir    string `yaml:"manifest_dir"`
	ObjectStoreDir string `yaml:"object_store_dir"`
}

type EngineConfig struct {
	DBWriteBufferSize           uint64 `yaml:"db_write_buffer_size"`
	SpaceWriteBufferSize        uint64 `yaml:"space_write_buffer_size"`
	WriteGroupWorkerNum         int    `yaml:"write_group_worker_num"`
	WriteGroupCommandChannelCap int    `yaml:"write_group_command_channel_cap"`
	ManifestSnapshotEvery       int    `yaml:"manifest_snapshot_every"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Engine: EngineConfig{
			DBWriteBufferSize:           1 << 30,
			SpaceWriteBufferSize:        256 << 20,
			WriteGroupWorkerNum:         8,
			WriteGroupCommandChannelCap: 128,
			ManifestSnapshotEvery:       1024,
		},
		TableOpts: map[string]string{},
	}
}

// Load reads a YAML config on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch strings.ToUpper(c.Logger.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("logger.level: unsupported level %q", c.Logger.Level))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir: required"))
	}
	if c.Engine.WriteGroupWorkerNum < 1 {
		errs = append(errs, fmt.Errorf("engine.write_group_worker_num: must be >= 1, got %d", c.Engine.WriteGroupWorkerNum))
	}
	if c.Engine.WriteGroupCommandChannelCap < 0 {
		errs = append(errs, fmt.Errorf("engine.write_group_command_channel_cap: must be >= 0, got %d", c.Engine.WriteGroupCommandChannelCap))
	}
	if c.Engine.ManifestSnapshotEvery < 0 {
		errs = append(errs, fmt.Errorf("engine.manifest_snapshot_every: must be >= 0, got %d", c.Engine.ManifestSnapshotEvery))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel converts Logger.Level. Unknown levels map to INFO.
func (c LoggerConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (s StorageConfig) WALPath() string {
	return s.orDefault(s.WALDir, "wal")
}

func (s StorageConfig) ManifestPath() string {
	return s.orDefault(s.ManifestDir, "manifest")
}

func (s StorageConfig) ObjectStorePath() string {
	return s.orDefault(s.ObjectStoreDir, "store")
}

func (s StorageConfig) orDefault(dir, child string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(s.DataDir, child)
}
