// Package config loads arreg's TOML configuration.
package config

import (
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trumank/drg-mods/snapshot"
)

// Config is the resolved configuration.
type Config struct {
	LogLevel logrus.Level
	Strict   bool
	Snapshot snapshot.Options
	// Workers bounds how many blobs verify checks at once.
	Workers int
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: logrus.InfoLevel,
		Snapshot: snapshot.Options{
			Format:      snapshot.FormatYAML,
			Compression: snapshot.CompressionNone,
		},
		Workers: runtime.NumCPU(),
	}
}

type fileConfig struct {
	LogLevel string `toml:"log_level"`
	Strict   bool   `toml:"strict"`
	Snapshot struct {
		Format      string `toml:"format"`
		Compression string `toml:"compression"`
	} `toml:"snapshot"`
	Verify struct {
		Workers int `toml:"workers"`
	} `toml:"verify"`
}

// Load reads the file at path over Default.
// Keys missing from the file keep their default; unknown keys are an error.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return resolve(raw, meta)
}

// Parse is Load for configuration text already in memory.
func Parse(text string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return resolve(raw, meta)
}

func resolve(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("log_level") {
		level, err := logrus.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse log_level")
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("strict") {
		cfg.Strict = raw.Strict
	}

	if meta.IsDefined("snapshot", "format") {
		f, err := snapshot.ParseFormat(strings.TrimSpace(raw.Snapshot.Format))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse snapshot.format")
		}
		cfg.Snapshot.Format = f
	}

	if meta.IsDefined("snapshot", "compression") {
		c, err := snapshot.ParseCompression(strings.TrimSpace(raw.Snapshot.Compression))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse snapshot.compression")
		}
		cfg.Snapshot.Compression = c
	}

	if meta.IsDefined("verify", "workers") {
		if raw.Verify.Workers < 1 {
			return Config{}, errors.Errorf("verify.workers must be at least 1, got %v", raw.Verify.Workers)
		}
		cfg.Workers = raw.Verify.Workers
	}

	return cfg, nil
}
