// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

// Package config loads the settings of an Avro IDL project from a YAML file
// and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/validator"
)

// DefaultFile is read when no configuration file is named explicitly.
const DefaultFile = ".avdl.yaml"

type Config struct {
	// SearchPaths are directories where imports not found next to the
	// importing file are looked up, in order.
	SearchPaths []string `yaml:"search_paths" envconfig:"AVDL_SEARCH_PATHS"`

	LogLevel string `yaml:"log_level" envconfig:"AVDL_LOG_LEVEL"`

	// MaxFileSize limits the size of parsed and imported files, when
	// non-zero.
	MaxFileSize uint32 `yaml:"max_file_size" envconfig:"AVDL_MAX_FILE_SIZE"`

	MaxConcurrentLoads int `yaml:"max_concurrent_loads" envconfig:"AVDL_MAX_CONCURRENT_LOADS"`

	WarningsAsErrors bool     `yaml:"warnings_as_errors" envconfig:"AVDL_WARNINGS_AS_ERRORS"`
	DisabledChecks   []uint32 `yaml:"disabled_checks" envconfig:"AVDL_DISABLED_CHECKS"`
}

func Default() Config {
	return Config{
		LogLevel:           "warning",
		MaxConcurrentLoads: 8,
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load returns the default configuration, overlaid with the YAML file at
// path and then with the environment. An empty path reads DefaultFile if
// it exists.
func Load(fsys afero.Fs, path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	required := path != ""
	if !required {
		path = DefaultFile
	}
	if err := loadYAML(fsys, &cfg, path, required); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

func loadYAML(fsys afero.Fs, cfg *Config, path string, required bool) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxConcurrentLoads < 1 {
		return fmt.Errorf("max_concurrent_loads must be positive, got %d", c.MaxConcurrentLoads)
	}
	for _, code := range c.DisabledChecks {
		if code < 1000 || code > 4999 {
			return fmt.Errorf("disabled_checks: %d is not a diagnostic code", code)
		}
	}
	return nil
}

// Level is the parsed LogLevel. Load has already rejected invalid levels.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

func (c *Config) ValidateOptions() []validator.ValidateOption {
	return []validator.ValidateOption{
		validator.WithDisabledChecks(c.DisabledChecks...),
		validator.WithWarningsAsErrors(c.WarningsAsErrors),
	}
}

func (c *Config) ProjectOptions(logger logrus.FieldLogger) []project.ProjectOption {
	opts := []project.ProjectOption{
		project.WithLogger(logger),
		project.WithMaxConcurrentLoads(c.MaxConcurrentLoads),
		project.WithValidateOptions(c.ValidateOptions()...),
	}
	if c.MaxFileSize > 0 {
		opts = append(opts, project.WithMaxFileSize(c.MaxFileSize))
	}
	return opts
}

// Resolver reads imports from fsys, using the configured search paths.
func (c *Config) Resolver(fsys afero.Fs) *project.FSResolver {
	resolver := project.NewFSResolver(fsys, c.SearchPaths...)
	resolver.MaxSize = int64(c.MaxFileSize)
	return resolver
}
