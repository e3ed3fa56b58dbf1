// Package config loads the optional YAML receiver configuration file:
// default paths for the public key, Merkle tree, and root-key hot-start
// cache, layered underneath whatever the CLI flags supply. Grounded on
// reset/internal/config and sdmconfig/internal/config's Load/Validate/
// resolvePaths shape.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the optional on-disk receiver configuration. Every field is a
// default: an explicit CLI flag always overrides the matching entry here.
type Config struct {
	PublicKeyFile  string `yaml:"public_key_file,omitempty"`
	RootKeyFile    string `yaml:"root_key_file,omitempty"`
	MerkleTreeFile string `yaml:"merkle_tree_file,omitempty"`
	SaveKROOTFile  string `yaml:"save_kroot_file,omitempty"`
	AllowGaps      *bool  `yaml:"allow_gaps,omitempty"`
}

// Load reads and decodes a receiver config file, resolving its relative
// paths against the config file's own directory.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	return &cfg, nil
}

func (c *Config) resolvePaths(configPath string) {
	dir := filepath.Dir(configPath)
	c.PublicKeyFile = resolvePath(dir, c.PublicKeyFile)
	c.RootKeyFile = resolvePath(dir, c.RootKeyFile)
	c.MerkleTreeFile = resolvePath(dir, c.MerkleTreeFile)
	c.SaveKROOTFile = resolvePath(dir, c.SaveKROOTFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}
