// Package instructionpresets loads the catalog of named instruction presets
// (style/focus overlays layered onto a capability's system prompt) from an
// embedded YAML file, following the original implementation's
// instruction_presets.rs catalog. gopkg.in/yaml.v3 is the teacher's own
// dependency for structured config-shaped data.
package instructionpresets

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/git-iris/gitiris/internal/girerr"
)

//go:embed presets.yaml
var catalogYAML []byte

// Applicability restricts which capabilities a preset may be selected for.
type Applicability string

const (
	ApplicableBoth   Applicability = "both"
	ApplicableCommit Applicability = "commit"
	ApplicableReview Applicability = "review"
)

// Preset is a single named instruction overlay.
type Preset struct {
	Key          string        `yaml:"-"`
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Instructions string        `yaml:"instructions"`
	Emoji        string        `yaml:"emoji"`
	Type         Applicability `yaml:"type"`
}

// Library is the parsed, queryable preset catalog.
type Library struct {
	presets map[string]Preset
}

var defaultLibrary *Library

func init() {
	lib, err := parse(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("instructionpresets: embedded catalog is invalid: %v", err))
	}
	defaultLibrary = lib
}

func parse(data []byte) (*Library, error) {
	var raw map[string]Preset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for key, p := range raw {
		p.Key = key
		raw[key] = p
	}
	return &Library{presets: raw}, nil
}

// Default returns the process-wide catalog parsed from the embedded YAML.
func Default() *Library { return defaultLibrary }

// Get returns the preset registered under key.
func (l *Library) Get(key string) (Preset, error) {
	p, ok := l.presets[key]
	if !ok {
		return Preset{}, girerr.New(girerr.KindConfiguration, "instructionpresets.Get",
			fmt.Sprintf("unknown instruction preset %q", key), nil).
			WithHint("available preset keys are defined in internal/instructionpresets/presets.yaml")
	}
	return p, nil
}

// ApplicableTo returns every preset usable for the given applicability,
// sorted by key for stable CLI listing output.
func (l *Library) ApplicableTo(a Applicability) []Preset {
	var out []Preset
	for _, p := range l.presets {
		if p.Type == ApplicableBoth || p.Type == a {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
