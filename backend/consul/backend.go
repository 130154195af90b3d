package consul

import (
	"context"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/ustore/data"
)

// consulMaxValueSize is the Consul KV limit of 512KB per value.
const consulMaxValueSize = 512 * 1024

// ConsulBackend provides a small-object adapter using HashiCorp Consul KV.
//
// Each object stores content and entry metadata together in a single KV
// value as a JSON envelope. Best suited for configuration files, small
// assets and coordination data; the KV store caps values at 512KB.
type ConsulBackend struct {
	client *api.Client
	kv     *api.KV

	config *Config
}

// Config contains configuration options for the Consul backend
type Config struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "ustore/")
	Prefix string
}

// NewConsulBackend creates a new Consul-backed adapter.
func NewConsulBackend(config *Config) (*ConsulBackend, error) {
	if config == nil {
		config = &Config{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	if config.Prefix == "" {
		config.Prefix = "ustore/"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, data.NewError(data.KindConfigInvalid, "", "").WithCause(err)
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	// Nothing to initialize - Consul handles connections
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (cb *ConsulBackend) Close(ctx context.Context) error {
	return nil
}

// Capabilities returns the static descriptor of supported operations.
func (cb *ConsulBackend) Capabilities() data.Capability {
	return data.Capability{
		Stat:         true,
		Read:         true,
		Write:        true,
		Delete:       true,
		List:         true,
		Copy:         true,
		MaxWriteSize: consulMaxValueSize,
	}
}

func (cb *ConsulBackend) buildKey(key string) string {
	return cb.config.Prefix + key
}
