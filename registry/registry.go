// Package registry operates the global registry of closed-chain mapper models. Model authors register a creator
// under a model name, usually from an init function, and model files refer to it by that name.
package registry

import (
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
)

// IdentityModel is the model name of referenceframe.IdentityMapper.
const IdentityModel = "identity"

// MapperConfig describes the closed group a mapper is being created for.
type MapperConfig struct {
	Group        string
	ActuatedKeys []string
	VirtualKeys  []string
	Attributes   map[string]interface{}
}

// A CreateMapper creates a mapper from a given config.
type CreateMapper func(cfg MapperConfig, logger logging.Logger) (referenceframe.Mapper, error)

var mapperRegistry = map[string]CreateMapper{}

func init() {
	RegisterMapper(IdentityModel, func(cfg MapperConfig, logger logging.Logger) (referenceframe.Mapper, error) {
		if len(cfg.Attributes) > 0 {
			logger.Warnw("identity mapper ignores attributes", "group", cfg.Group)
		}
		return referenceframe.IdentityMapper{}, nil
	})
}

// RegisterMapper registers a mapper model to a creator.
func RegisterMapper(model string, creator CreateMapper) {
	_, old := mapperRegistry[model]
	if old {
		panic(errors.Errorf("trying to register two mappers with same model %s", model))
	}
	if creator == nil {
		panic(errors.Errorf("cannot register a nil creator for mapper model %s", model))
	}
	mapperRegistry[model] = creator
}

// LookupMapper looks up a mapper creator by the given model.
func LookupMapper(model string) (CreateMapper, error) {
	creator, ok := mapperRegistry[model]
	if !ok {
		return nil, referenceframe.NewLookupError("mapper model", model, RegisteredMappers())
	}
	return creator, nil
}

// RegisteredMappers returns the registered model names in sorted order.
func RegisteredMappers() []string {
	models := make([]string, 0, len(mapperRegistry))
	for model := range mapperRegistry {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// DecodeAttributes decodes a mapper config's attributes into out, a pointer to a struct with json tags. The names
// of attributes that matched no field are returned so the creator can warn about them.
func DecodeAttributes(cfg MapperConfig, out interface{}) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   out,
		Metadata: &md,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg.Attributes); err != nil {
		return nil, errors.Wrapf(err, "attributes of group %q", cfg.Group)
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}
