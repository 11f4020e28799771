// Package engine wires C1-C6 together behind the single entry point a
// front-end actually calls: Init builds a node store, operation cache,
// proof writer, justified applier and TBDD manager from one
// configuration, taking the same arguments as buddy's own setup
// routine (proof file, var counter, clause counter, input clauses,
// var order, proof type, binary flag).
package engine

import (
	"os"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/go-air/tbdd/proof"
)

// Config tunes the node store and operation cache independently of the
// per-call Init arguments (proof file, counters, input clauses, var
// order, proof type, binary flag stay as Init parameters, since they
// vary per proof run; everything tunable about resource limits lives
// here so it can be loaded once from a file and reused).
type Config struct {
	MaxNodes     int     `json:"maxNodes"`
	CacheSize    int     `json:"cacheSize"`
	GrowthFactor float64 `json:"growthFactor"`
	GCThreshold  float64 `json:"gcThreshold"`
}

// DefaultConfig returns the configuration Init falls back to when the
// caller passes a zero-value Config.
func DefaultConfig() Config {
	return Config{
		MaxNodes:     1 << 20,
		CacheSize:    1 << 16,
		GrowthFactor: 2,
		GCThreshold:  0.2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxNodes <= 0 {
		c.MaxNodes = d.MaxNodes
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.GrowthFactor <= 1 {
		c.GrowthFactor = d.GrowthFactor
	}
	if c.GCThreshold <= 0 || c.GCThreshold >= 1 {
		c.GCThreshold = d.GCThreshold
	}
	return c
}

// LoadConfig reads a YAML document at path into a Config, the way a
// front-end would hand the core a tuned configuration without the core
// parsing CLI flags itself.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "engine: reading config file")
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "engine: parsing config file")
	}
	return c, nil
}

// ProofType names the proof.Format Init should emit, kept as its own
// type purely to decouple this package's exported surface from proof's
// internal Format representation.
type ProofType = proof.Format

const (
	LRAT = proof.LRAT
	DRAT = proof.DRAT
	FRAT = proof.FRAT
)
