package config

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// PresetFile maps preset names to threshold sets, e.g.
//
//	presets:
//	  metro: {rural: 25, suburban: 120, urban: 400}
type PresetFile struct {
	Presets map[string]ThresholdConfig `yaml:"presets"`
}

// Preset loads the named threshold set from a YAML presets file.
func Preset(path, name string) (ThresholdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ThresholdConfig{}, eris.Wrap(err, "config: read presets file")
	}

	var f PresetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ThresholdConfig{}, eris.Wrap(err, "config: parse presets file")
	}

	t, ok := f.Presets[name]
	if !ok {
		names := make([]string, 0, len(f.Presets))
		for n := range f.Presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return ThresholdConfig{}, eris.Errorf("config: preset %q not found (have %v)", name, names)
	}

	if err := t.Validate(); err != nil {
		return ThresholdConfig{}, eris.Wrapf(err, "config: preset %q", name)
	}
	return t, nil
}
