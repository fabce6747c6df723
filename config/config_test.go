package config

import (
	"testing"

	"github.com/jims1001/activityfeed/errs"
)

func TestDecodeAppliesDefaultsAndOverrides(t *testing.T) {
	cfg, err := Decode(map[string]any{
		"namespace": "acme",
		"per_page":  10.0, // exercises the float64->int hook, as a JSON-decoded value would
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Namespace != "acme" || cfg.PerPage != 10 || cfg.BatchSize != 10 || cfg.MaxSize != 1000 {
		t.Fatalf("Decode = %+v, want namespace=acme per_page=10 batch_size=10 max_size=1000", cfg)
	}
}

func TestDecodeRequiresNamespace(t *testing.T) {
	_, err := Decode(map[string]any{})
	if errs.KindOf(err) != errs.ConfigError {
		t.Fatalf("Decode() error kind = %v, want ConfigError", errs.KindOf(err))
	}
}

func TestDecodeOptionsRejectsDuplicateKeys(t *testing.T) {
	_, err := DecodeOptions([]Option{
		{Key: "namespace", Value: "acme"},
		{Key: "per_page", Value: 10},
		{Key: "per_page", Value: 20},
	})
	if errs.KindOf(err) != errs.ConfigError {
		t.Fatalf("DecodeOptions() error kind = %v, want ConfigError for duplicate per_page", errs.KindOf(err))
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(map[string]any{"namespace": "acme", "bogus": true})
	if errs.KindOf(err) != errs.ConfigError {
		t.Fatalf("Decode() error kind = %v, want ConfigError for unknown key", errs.KindOf(err))
	}
}
