package config

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks returns the decoder options used when unmarshalling config. Viper's own duration and
// comma-separated list hooks are retained, and run after any extra hooks provided.
func CustomHooks(extra ...mapstructure.DecodeHookFunc) []viper.DecoderConfigOption {
	hooks := make([]mapstructure.DecodeHookFunc, 0, len(extra)+2)
	hooks = append(hooks, extra...)
	hooks = append(hooks,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	return []viper.DecoderConfigOption{
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(hooks...)),
	}
}

// SeparatedListHookFunc decodes a single string into the slice type target by splitting it on any
// of the runes in separators. Surrounding whitespace and empty elements are dropped, so "30:20:10",
// "30, 20, 10" and "30 : 20" all decode as expected.
func SeparatedListHookFunc(target reflect.Type, separators string) mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != target {
			return data, nil
		}
		fields := strings.FieldsFunc(data.(string), func(r rune) bool {
			return strings.ContainsRune(separators, r)
		})
		rv := make([]string, 0, len(fields))
		for _, field := range fields {
			if field = strings.TrimSpace(field); field != "" {
				rv = append(rv, field)
			}
		}
		return rv, nil
	}
}
