package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is a per-user triage profile: who counts as a VIP and what
// counts as high-stakes. Kept in its own YAML file so operators can edit
// it without touching service configuration.
type Profile struct {
	VIPSenders              []string `yaml:"vip_senders"`
	HighStakesAmount        float64  `yaml:"high_stakes_amount"`
	HighStakesDeadlineHours int      `yaml:"high_stakes_deadline_hours"`
}

// LoadProfile reads a triage profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read profile %s", path)
	}

	// The YAML has a top-level "triage" key
	var wrapper struct {
		Triage Profile `yaml:"triage"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse profile")
	}

	return &wrapper.Triage, nil
}

// Apply merges the profile into the engine section. Profile values win
// when set; unset profile values leave the existing configuration alone.
func (p *Profile) Apply(cfg *Config) {
	if len(p.VIPSenders) > 0 {
		cfg.Engine.VIPSenders = p.VIPSenders
	}
	if p.HighStakesAmount > 0 {
		cfg.Engine.HighStakesAmount = p.HighStakesAmount
	}
	if p.HighStakesDeadlineHours > 0 {
		cfg.Engine.HighStakesDeadlineHours = p.HighStakesDeadlineHours
	}
}
