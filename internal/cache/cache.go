// Package cache holds warm vault client handles keyed by (cluster, vault,
// environment). Handles live for the process lifetime; Lambda keeps the
// process warm between invocations so auth setup is paid once per triple.
package cache

import (
	"sync"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// ClientKey uniquely identifies one backend client handle.
type ClientKey struct {
	Cluster string
	Vault   string
	Env     types.Environment
}

// Constructor builds a new vault client for a key. It must be idempotent;
// the cache guarantees it runs at most once per distinct key.
type Constructor func(key ClientKey) ports.VaultService

// Cache is owned by the service instance and passed by reference into request
// handlers. No eviction: the triple space of a deployment is small and bounded
// by operator-configured clusters and vaults.
type Cache struct {
	mu      sync.Mutex
	clients map[ClientKey]ports.VaultService
	build   Constructor
}

func New(build Constructor) *Cache {
	return &Cache{
		clients: make(map[ClientKey]ports.VaultService),
		build:   build,
	}
}

// Resolve returns the handle for the triple, constructing it on first access.
// The env string is validated here so a bad environment never reaches the
// backend. Construction is serialized under the lock; constructors are cheap
// (auth material is fetched lazily on first call, not at construction).
func (c *Cache) Resolve(cluster, vault, env string) (ports.VaultService, error) {
	if cluster == "" {
		return nil, types.Err(types.ErrConfig, nil, "missing required header %s", types.ClusterIDHdrName)
	}
	if vault == "" {
		return nil, types.Err(types.ErrConfig, nil, "missing required header %s", types.VaultIDHdrName)
	}
	parsedEnv, err := types.ParseEnvironment(env)
	if err != nil {
		return nil, err
	}
	key := ClientKey{Cluster: cluster, Vault: vault, Env: parsedEnv}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cli, ok := c.clients[key]; ok {
		return cli, nil
	}
	cli := c.build(key)
	c.clients[key] = cli
	return cli, nil
}

// Len reports the number of cached handles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
