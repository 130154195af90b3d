package ustore

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/backend/consul"
	"github.com/mwantia/ustore/backend/local"
	"github.com/mwantia/ustore/backend/memory"
	"github.com/mwantia/ustore/backend/postgres"
	"github.com/mwantia/ustore/backend/s3"
	"github.com/mwantia/ustore/backend/sqlite"
	"github.com/mwantia/ustore/data"
)

// allowedKeys lists the recognized configuration keys per scheme.
var allowedKeys = map[Scheme][]string{
	SchemeMemory:   {"max_write_size"},
	SchemeFs:       {"root"},
	SchemeSQLite:   {"path"},
	SchemePostgres: {"connection"},
	SchemeConsul:   {"address", "token", "datacenter", "namespace", "prefix"},
	SchemeS3:       {"endpoint", "bucket", "access_key", "secret_key", "region", "use_ssl"},
}

// newBackend validates the configuration for the scheme and constructs
// the terminal adapter. Unrecognized or missing required keys fail with
// a ConfigInvalid error naming the offending key.
func newBackend(scheme Scheme, cfg map[string]string) (backend.Backend, error) {
	if err := validateKeys(scheme, cfg); err != nil {
		return nil, err
	}

	switch scheme {
	case SchemeMemory:
		maxWriteSize, err := parseInt(scheme, cfg, "max_write_size")
		if err != nil {
			return nil, err
		}
		return memory.NewMemoryBackend(&memory.Config{
			MaxWriteSize: maxWriteSize,
		}), nil

	case SchemeFs:
		root, err := requireKey(scheme, cfg, "root")
		if err != nil {
			return nil, err
		}
		return local.NewLocalBackend(root)

	case SchemeSQLite:
		path, err := requireKey(scheme, cfg, "path")
		if err != nil {
			return nil, err
		}
		return sqlite.NewSQLiteBackend(path)

	case SchemePostgres:
		connection, err := requireKey(scheme, cfg, "connection")
		if err != nil {
			return nil, err
		}
		return postgres.NewPostgresBackend(connection)

	case SchemeConsul:
		return consul.NewConsulBackend(&consul.Config{
			Address:    cfg["address"],
			Token:      cfg["token"],
			Datacenter: cfg["datacenter"],
			Namespace:  cfg["namespace"],
			Prefix:     cfg["prefix"],
		})

	case SchemeS3:
		endpoint, err := requireKey(scheme, cfg, "endpoint")
		if err != nil {
			return nil, err
		}
		bucket, err := requireKey(scheme, cfg, "bucket")
		if err != nil {
			return nil, err
		}
		useSSL, err := parseBool(scheme, cfg, "use_ssl")
		if err != nil {
			return nil, err
		}
		return s3.NewS3Backend(&s3.Config{
			Endpoint:  endpoint,
			Bucket:    bucket,
			AccessKey: cfg["access_key"],
			SecretKey: cfg["secret_key"],
			Region:    cfg["region"],
			UseSSL:    useSSL,
		})
	}

	return nil, configError(fmt.Errorf("no backend registered for scheme '%s'", scheme))
}

func validateKeys(scheme Scheme, cfg map[string]string) error {
	allowed := allowedKeys[scheme]

	for key := range cfg {
		if !slices.Contains(allowed, key) {
			return configError(fmt.Errorf("unrecognized key '%s' for scheme '%s'", key, scheme))
		}
	}

	return nil
}

func requireKey(scheme Scheme, cfg map[string]string, key string) (string, error) {
	value, exists := cfg[key]
	if !exists || value == "" {
		return "", configError(fmt.Errorf("missing required key '%s' for scheme '%s'", key, scheme))
	}

	return value, nil
}

func parseInt(scheme Scheme, cfg map[string]string, key string) (int64, error) {
	value, exists := cfg[key]
	if !exists || value == "" {
		return 0, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, configError(fmt.Errorf("invalid value '%s' for key '%s'", value, key))
	}

	return parsed, nil
}

func parseBool(scheme Scheme, cfg map[string]string, key string) (bool, error) {
	value, exists := cfg[key]
	if !exists || value == "" {
		return false, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, configError(fmt.Errorf("invalid value '%s' for key '%s'", value, key))
	}

	return parsed, nil
}

func configError(cause error) error {
	return data.NewError(data.KindConfigInvalid, "", "").WithCause(cause)
}
