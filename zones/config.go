package zones

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NotifierConfig is the per-notifier filter configuration. A notifier either
// draws its own zones (UseCustomZones) or points at a shared preset; the two
// are mutually exclusive, with custom zones taking priority.
type NotifierConfig struct {
	// UseCustomZones makes the notifier use its own Custom profiles and
	// ignore any selected preset.
	UseCustomZones bool `json:"use_custom,omitempty"`
	// SelectedPreset is the id of the shared preset to filter with.
	SelectedPreset string `json:"selected_preset,omitempty"`
	// Custom holds the notifier's own per-camera profiles.
	Custom ProfileSet `json:"custom_zones,omitempty"`
	// DebugZones replaces forwarded notification images with a full frame
	// snapshot annotated with the matched zone and object bounding box.
	DebugZones bool `json:"debug_zones,omitempty"`
	// DetectionClasses restricts filtering to the listed detection labels or
	// categories. Empty means all classes.
	DetectionClasses []string `json:"detection_classes,omitempty"`
	// MinScore drops detections below this confidence before zone matching.
	// Zero disables score filtering.
	MinScore float64 `json:"min_score,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *NotifierConfig) Validate(path string) error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("min_score must be within [0, 1], got %v", c.MinScore))
	}
	return c.Custom.Validate(fmt.Sprintf("%s.custom_zones", path))
}

// DecodeNotifierConfig builds a NotifierConfig from loose attributes, such
// as a decoded JSON object from the admin API. Unknown keys are an error so
// misspelled settings do not silently disable filtering.
func DecodeNotifierConfig(attrs AttributeMap) (*NotifierConfig, error) {
	var conf NotifierConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &conf,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return nil, errors.Wrap(err, "decoding notifier config")
	}
	return &conf, nil
}
