package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/reelkeeper/internal/flagx"
	"github.com/dmitrijs2005/reelkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Pointer fields
// distinguish "absent" from zero values so that a partial file only
// overrides what it mentions.
type FileConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	LogLevel                    *string         `json:"log_level" yaml:"log_level"`
	LogFormat                   *string         `json:"log_format" yaml:"log_format"`
	HashMemoryKiB               *uint32         `json:"hash_memory_kib" yaml:"hash_memory_kib"`
	HashIterations              *uint32         `json:"hash_iterations" yaml:"hash_iterations"`
	HashParallelism             *uint8          `json:"hash_parallelism" yaml:"hash_parallelism"`
}

// parseFile overlays the file named by -c/-config (or $REELKEEPER_CONFIG)
// onto config. Files ending in .yaml or .yml are decoded as YAML, anything
// else as JSON. No file means no changes.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setIf(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setIf(&c.DatabaseDSN, fc.DatabaseDSN)
	setIf(&c.SecretKey, fc.SecretKey)
	if fc.AccessTokenValidityDuration != nil {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	setIf(&c.LogLevel, fc.LogLevel)
	setIf(&c.LogFormat, fc.LogFormat)
	setIf(&c.HashMemoryKiB, fc.HashMemoryKiB)
	setIf(&c.HashIterations, fc.HashIterations)
	setIf(&c.HashParallelism, fc.HashParallelism)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
