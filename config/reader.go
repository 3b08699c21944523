package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
)

// UnmarshalModelConfig parses model file data. ext selects the format: "json", "json5", or "yaml" / "yml". A
// leading dot is ignored.
func UnmarshalModelConfig(data []byte, ext string) (*ModelConfig, error) {
	// empty data probably means that the file has no model information
	if len(data) == 0 {
		return nil, ErrNoModelInformation
	}
	cfg := &ModelConfig{}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal json file")
		}
	case "json5":
		// json5 only decodes into generic values; re-encode so the json tags apply
		var raw interface{}
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal json5 file")
		}
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(normalized, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal json5 file")
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal yaml file")
		}
	default:
		return nil, errors.Errorf("unsupported model file extension %q, supported are json, json5, yaml and yml", ext)
	}
	return cfg, nil
}

// UnmarshalModel parses model file data and builds the robot it describes.
func UnmarshalModel(data []byte, ext string, logger logging.Logger) (*referenceframe.Robot, error) {
	cfg, err := UnmarshalModelConfig(data, ext)
	if err != nil {
		return nil, err
	}
	return cfg.Build(logger)
}

// ReadModelFile reads a model file and builds the robot it describes. The format follows the file extension.
// Environment variables in the file, written ${NAME} or ${NAME:-default}, are expanded first.
func ReadModelFile(filename string, logger logging.Logger) (*referenceframe.Robot, error) {
	data, err := envsubst.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model file")
	}
	return UnmarshalModel(data, filepath.Ext(filename), logger)
}
