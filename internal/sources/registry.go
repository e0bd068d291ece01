package sources

import (
	"sync"

	"github.com/scidex/scifetch/internal/domain"
)

// Registry manages source clients: thread-safe registration, retrieval by
// source type, and enabled-client snapshots for fan-out callers.
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.SourceType]SourceClient
}

// NewRegistry creates a new source registry with an empty client map.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[domain.SourceType]SourceClient),
	}
}

// Register adds a client to the registry. If a client with the same source
// type already exists, it is replaced.
func (r *Registry) Register(client SourceClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.SourceType()] = client
}

// Get returns a client by source type, or nil if not registered.
func (r *Registry) Get(sourceType domain.SourceType) SourceClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[sourceType]
}

// AllClients returns a snapshot of all registered clients.
func (r *Registry) AllClients() []SourceClient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]SourceClient, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// EnabledClients returns a snapshot of clients whose IsEnabled reports true.
func (r *Registry) EnabledClients() []SourceClient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]SourceClient, 0, len(r.clients))
	for _, client := range r.clients {
		if client.IsEnabled() {
			clients = append(clients, client)
		}
	}
	return clients
}
