// Package config loads the engine policy from a YAML file. Every field has a
// default; a missing file means defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML string parsing ("5m", "24h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Policy holds the tunable verification policy. Protocol invariants
// (ordering, replay, monotonic state) are not configurable; only the knobs
// below are.
type Policy struct {
	// ChallengeCount is the number of challenges issued per session.
	ChallengeCount int `yaml:"challenge_count"`
	// MaxAttempts is the per-challenge retry budget.
	MaxAttempts int `yaml:"max_attempts"`
	// TimeLimitSeconds is the per-challenge completion window shown to the
	// client.
	TimeLimitSeconds int `yaml:"time_limit_seconds"`
	// SessionLifetime bounds how long a session accepts submissions.
	SessionLifetime Duration `yaml:"session_lifetime"`
	// TrustTTL is how long a high-trust grant fast-tracks a device.
	TrustTTL Duration `yaml:"trust_ttl"`
}

// Default returns the built-in policy.
func Default() Policy {
	return Policy{
		ChallengeCount:   3,
		MaxAttempts:      2,
		TimeLimitSeconds: 7,
		SessionLifetime:  Duration(5 * time.Minute),
		TrustTTL:         Duration(24 * time.Hour),
	}
}

// Load reads a policy file, applying defaults for absent fields. A missing
// file is not an error: the defaults are returned.
func Load(path string) (Policy, error) {
	policy := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

// Validate rejects nonsensical policies.
func (p Policy) Validate() error {
	if p.ChallengeCount < 1 {
		return errors.New("challenge_count must be at least 1")
	}
	if p.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if p.TimeLimitSeconds < 1 {
		return errors.New("time_limit_seconds must be at least 1")
	}
	if p.SessionLifetime <= 0 {
		return errors.New("session_lifetime must be positive")
	}
	if p.TrustTTL <= 0 {
		return errors.New("trust_ttl must be positive")
	}
	return nil
}
