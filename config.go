package varyprobe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration of a probe run.
// Command line flags take precedence over it.
type FileConfig struct {
	URL        string           `yaml:"url"`
	AltHost    string           `yaml:"altHost"`
	PageAccept string           `yaml:"pageAccept"`
	Sequence   string           `yaml:"sequence"`
	Sequences  []SequenceConfig `yaml:"sequences"`
}

type SequenceConfig struct {
	Name  string       `yaml:"name"`
	Steps []StepConfig `yaml:"steps"`
}

type StepConfig struct {
	Name      string `yaml:"name"`
	MediaType string `yaml:"mediaType"`
	Alternate bool   `yaml:"alternate"`
	Expect    string `yaml:"expect"`
	Note      string `yaml:"note"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(filename string) (FileConfig, error) {
	var config FileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, err
	}
	if _, err := config.customSequences(); err != nil {
		return config, err
	}
	return config, nil
}

// LookupSequence returns the built-in or configured sequence with the given
// name. Configured sequences shadow built-in ones.
func (c FileConfig) LookupSequence(name string) (ProbeSequence, error) {
	custom, err := c.customSequences()
	if err != nil {
		return ProbeSequence{}, err
	}
	for _, seq := range custom {
		if seq.Name == name {
			return seq, nil
		}
	}
	switch name {
	case SequenceVary, "":
		return VarySequence(c.PageAccept), nil
	case SequenceBasic:
		return BasicSequence(), nil
	}
	return ProbeSequence{}, fmt.Errorf("unknown sequence %q", name)
}

func (c FileConfig) customSequences() ([]ProbeSequence, error) {
	seqs := make([]ProbeSequence, 0, len(c.Sequences))
	for i, sc := range c.Sequences {
		if sc.Name == "" {
			return nil, fmt.Errorf("sequences[%d].name is required", i)
		}
		if len(sc.Steps) == 0 {
			return nil, fmt.Errorf("sequences[%d].steps is empty", i)
		}
		seq := ProbeSequence{Name: sc.Name, Steps: make([]Step, len(sc.Steps))}
		for j, st := range sc.Steps {
			if strings.TrimSpace(st.MediaType) == "" {
				return nil, fmt.Errorf("sequences[%d].steps[%d].mediaType is required", i, j)
			}
			outcome, err := parseOutcome(st.Expect)
			if err != nil {
				return nil, fmt.Errorf("sequences[%d].steps[%d].expect: %w", i, j, err)
			}
			name := st.Name
			if name == "" {
				name = st.MediaType
			}
			seq.Steps[j] = Step{
				Name:      name,
				MediaType: st.MediaType,
				Alternate: st.Alternate,
				Expect:    Expectation{Outcome: outcome, Note: st.Note},
			}
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

func parseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeHit:
		return OutcomeHit, nil
	case OutcomeMiss:
		return OutcomeMiss, nil
	case OutcomeUnknown, "":
		return OutcomeUnknown, nil
	}
	return "", fmt.Errorf("expected hit or miss, got %q", s)
}
