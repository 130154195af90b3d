package ustore

import (
	"fmt"
	"strings"

	"github.com/mwantia/ustore/data"
)

// Scheme identifies the service a backend speaks to.
type Scheme string

const (
	SchemeMemory   Scheme = "memory"
	SchemeFs       Scheme = "fs"
	SchemeSQLite   Scheme = "sqlite"
	SchemePostgres Scheme = "postgres"
	SchemeConsul   Scheme = "consul"
	SchemeS3       Scheme = "s3"
)

func (s Scheme) String() string {
	return string(s)
}

// ParseScheme resolves a scheme name or one of its common aliases.
func ParseScheme(value string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "memory", "mem", "ephemeral":
		return SchemeMemory, nil
	case "fs", "local", "direct":
		return SchemeFs, nil
	case "sqlite":
		return SchemeSQLite, nil
	case "postgres", "postgresql", "psql":
		return SchemePostgres, nil
	case "consul":
		return SchemeConsul, nil
	case "s3", "minio":
		return SchemeS3, nil
	}

	return "", data.NewError(data.KindConfigInvalid, "", "").
		WithCause(fmt.Errorf("unknown scheme '%s'", value))
}
