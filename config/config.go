// Package config decodes the map[string]any options a feed is defined
// with into a typed FeedConfig, the way the teacher's tools/decode
// package decodes a dynamic *structpb.Struct into a typed payload.
package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/jims1001/activityfeed/errs"
)

// FeedConfig is the fully-resolved configuration for one registered feed
// (spec.md §3): its pagination default, dispatch batch size, per-user
// cap, and the namespace it occupies in its provider. The provider itself
// is held by the feed.Feed, not by FeedConfig.
type FeedConfig struct {
	PerPage   int    `mapstructure:"per_page"`
	BatchSize int    `mapstructure:"batch_size"`
	Namespace string `mapstructure:"namespace"`
	MaxSize   int    `mapstructure:"max_size"`
}

// DefaultFeedConfig mirrors spec.md §3's stated defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{PerPage: 50, BatchSize: 10, MaxSize: 1000}
}

// Option is one key/value pair from a define() call site. Unlike a plain
// map[string]any, a slice of Option can carry the same key twice, which
// is exactly the case spec.md §9 requires to be rejected rather than
// resolved last-wins.
type Option struct {
	Key   string
	Value any
}

// DecodeOptions builds a FeedConfig from an ordered list of key/value
// pairs, rejecting any key seen more than once.
func DecodeOptions(raw []Option) (FeedConfig, error) {
	opts := make(map[string]any, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, o := range raw {
		if seen[o.Key] {
			return FeedConfig{}, errs.Configf("duplicate option key %q", o.Key)
		}
		seen[o.Key] = true
		opts[o.Key] = o.Value
	}
	return Decode(opts)
}

// Decode builds a FeedConfig from a define()-style options map, starting
// from DefaultFeedConfig and overlaying whatever keys opts sets. Unlike
// the teacher's DecodeStruct (which always starts from a zero T), this
// decodes onto a pre-populated default so an options map may omit any
// subset of keys. Since a Go map literal can never carry a duplicate key,
// callers that need spec.md §9's duplicate-key rejection should build
// their options with DecodeOptions instead.
func Decode(opts map[string]any) (FeedConfig, error) {
	cfg := DefaultFeedConfig()
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(floatToIntHook()),
		ErrorUnused:      true,
	}
	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return FeedConfig{}, errs.Wrap(errs.ConfigError, "build option decoder", err)
	}
	if err := dec.Decode(opts); err != nil {
		return FeedConfig{}, errs.Wrap(errs.ConfigError, "decode feed options", err)
	}
	if cfg.Namespace == "" {
		return FeedConfig{}, errs.Configf("namespace is required")
	}
	if cfg.PerPage <= 0 {
		return FeedConfig{}, errs.Configf("per_page must be positive, got %d", cfg.PerPage)
	}
	if cfg.BatchSize <= 0 {
		return FeedConfig{}, errs.Configf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	return cfg, nil
}

func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}
