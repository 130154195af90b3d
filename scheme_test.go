package ustore

import (
	"errors"
	"testing"

	"github.com/mwantia/ustore/data"
)

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{
		"memory":     SchemeMemory,
		"mem":        SchemeMemory,
		"ephemeral":  SchemeMemory,
		"fs":         SchemeFs,
		"local":      SchemeFs,
		"direct":     SchemeFs,
		"sqlite":     SchemeSQLite,
		"postgres":   SchemePostgres,
		"postgresql": SchemePostgres,
		"psql":       SchemePostgres,
		"consul":     SchemeConsul,
		"s3":         SchemeS3,
		"minio":      SchemeS3,
		"  S3  ":     SchemeS3,
	}

	for input, expected := range cases {
		got, err := ParseScheme(input)
		if err != nil {
			t.Errorf("ParseScheme(%q) failed: %v", input, err)
			continue
		}
		if got != expected {
			t.Errorf("ParseScheme(%q): expected %s, got %s", input, expected, got)
		}
	}
}

func TestParseScheme_Unknown(t *testing.T) {
	_, err := ParseScheme("gopher")
	if !errors.Is(err, data.ErrConfigInvalid) {
		t.Fatalf("Expected ConfigInvalid, got %v", err)
	}
}
