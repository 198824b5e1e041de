// Package config holds the converter settings shared by the CLI and the
// web server.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/fbxdoc/logger"
)

type ConvertConfig struct {
	Format       string  `yaml:"format"`
	Version      uint32  `yaml:"version"`
	ResampleRate float64 `yaml:"resample_rate"`
	// Encoding names the code page used for strings that are not valid UTF-8
	Encoding string `yaml:"encoding"`
	Creator  string `yaml:"creator"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func (c LogConfig) FileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			Format:       "binary",
			Version:      7400,
			ResampleRate: 30,
			Encoding:     DefaultEncoding,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Server: ServerConfig{
			Addr:        ":8000",
			MaxUploadMB: 64,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "Failed to read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid config %q", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Convert.Format {
	case "binary", "ascii", "gltf", "glb":
	default:
		return errors.Errorf("Unknown format %q", c.Convert.Format)
	}
	switch c.Convert.Version {
	case 7100, 7200, 7300, 7400:
	default:
		return errors.Errorf("Unsupported FBX version %d", c.Convert.Version)
	}
	if c.Convert.ResampleRate <= 0 {
		return errors.Errorf("Resample rate must be positive, got %v", c.Convert.ResampleRate)
	}
	if _, err := FindEncoding(c.Convert.Encoding); err != nil {
		return err
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.Errorf("Max upload size must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write config %q", path)
	}
	return nil
}
