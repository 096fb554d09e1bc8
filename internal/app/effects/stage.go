// Package effects provides the per-deck DSP effects chain.
package effects

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ErrUnknownStage is returned for a stage name that is not registered.
var ErrUnknownStage = errors.New("unknown effect stage")

// Stage is one effect in the chain. Process works in place on stereo
// frames and keeps its state across calls.
type Stage interface {
	// Name returns the stage name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// SettingsKeys returns the settings keys the stage accepts.
	SettingsKeys() []string
	// ValidateConfig decodes, defaults and validates settings and applies them.
	ValidateConfig(settings map[string]any) error
	// Process applies the effect to buf in place.
	Process(buf [][2]float64)
	// Reset clears internal filter and delay memory.
	Reset()
}

// Stage names in processing order.
const (
	StageEQ     = "eq"
	StageFilter = "filter"
	StageReverb = "reverb"
	StageEcho   = "echo"
)

// Order is the fixed processing order of the chain.
var Order = []string{StageEQ, StageFilter, StageReverb, StageEcho}

// registry holds registered stage factories.
var registry = make(map[string]func(sampleRate float64) Stage)

// Register registers a stage factory.
func Register(name string, factory func(sampleRate float64) Stage) {
	registry[name] = factory
}

// GetRegistered returns all registered stage factories.
func GetRegistered() map[string]func(sampleRate float64) Stage {
	return registry
}

// RegisteredNames returns the registered stage names sorted by chain order.
func RegisteredNames() []string {
	rank := make(map[string]int, len(Order))
	for i, n := range Order {
		rank[n] = i
	}
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		if iok && jok {
			return ri < rj
		}
		if iok != jok {
			return iok
		}
		return names[i] < names[j]
	})
	return names
}

// decodeSettings fills out from its default tags, overlays settings and
// validates the result. Defaults go first so explicit zero values survive.
func decodeSettings(settings map[string]any, out any) error {
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
