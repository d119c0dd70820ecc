package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyInput   = "input"
	keyOutput  = "output"
	keyLookup  = "lookup"
	keyLogging = "logging"
)

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto the
// target Config. Scalar keys replace the target value. Section keys are
// decoded onto the target section, so fields the file omits keep their
// current value. Unknown keys are ignored.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", overlayPath, err)
	}

	// Discover which top-level keys are present in the overlay.
	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, node := range overlay {
		if err = mergeSection(target, key, &node); err != nil {
			return fmt.Errorf("applying config section %q: %w", key, err)
		}
	}

	return nil
}

// mergeSection decodes node onto the field of target named by key.
func mergeSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keyInput:
		return node.Decode(&target.Input)
	case keyOutput:
		return node.Decode(&target.Output)
	case keyLookup:
		return node.Decode(&target.Lookup)
	case keyLogging:
		return node.Decode(&target.Logging)
	default:
		return nil
	}
}
