package mongotable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hugr-lab/docbridge/connection"
	"github.com/hugr-lab/docbridge/internal/metrics"
)

// DefaultClientCacheSize is the number of clients kept when no size is given.
const DefaultClientCacheSize = 64

const disconnectTimeout = 10 * time.Second

type clientEntry struct {
	client  *mongo.Client
	refs    int
	evicted bool
}

// ClientCache shares store clients between tables that point at the same
// cluster with the same credentials. Evicted clients are disconnected once
// the last scan using them has finished.
type ClientCache struct {
	mu      sync.Mutex
	cache   *lru.Cache[uint64, *clientEntry]
	closing []*mongo.Client
	logger  *slog.Logger
}

// NewClientCache creates a cache holding up to size clients.
func NewClientCache(size int, logger *slog.Logger) (*ClientCache, error) {
	if size <= 0 {
		size = DefaultClientCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &ClientCache{logger: logger}
	cache, err := lru.NewWithEvict(size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create client cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// onEvict runs with c.mu held.
func (c *ClientCache) onEvict(_ uint64, e *clientEntry) {
	e.evicted = true
	metrics.IncClientCache("evict")
	if e.refs == 0 {
		c.closing = append(c.closing, e.client)
	}
}

// Acquire returns a client for t. The caller MUST call release once it no
// longer uses the client.
func (c *ClientCache) Acquire(t *connection.Target) (client *mongo.Client, release func(), err error) {
	key := t.Fingerprint()

	c.mu.Lock()
	e, ok := c.cache.Get(key)
	if ok {
		metrics.IncClientCache("hit")
	} else {
		metrics.IncClientCache("miss")
		e, err = c.connect(t)
		if err != nil {
			c.mu.Unlock()
			return nil, nil, err
		}
		c.cache.Add(key, e)
		metrics.SetClientCacheSize(c.cache.Len())
	}
	e.refs++
	closing := c.takeClosing()
	c.mu.Unlock()
	c.disconnect(closing)

	var once sync.Once
	return e.client, func() { once.Do(func() { c.release(e) }) }, nil
}

func (c *ClientCache) connect(t *connection.Target) (*clientEntry, error) {
	opts, err := t.ClientOptions()
	if err != nil {
		return nil, fmt.Errorf("client options for %s: %w", t.Display(), err)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", t.Display(), err)
	}
	for _, opt := range t.TrustDowngrades() {
		c.logger.Warn("TLS verification relaxed", "target", t.Display().String(), "option", opt)
	}
	c.logger.Debug("Store client created", "target", t.Display().String())
	return &clientEntry{client: client}, nil
}

func (c *ClientCache) release(e *clientEntry) {
	c.mu.Lock()
	e.refs--
	if e.refs == 0 && e.evicted {
		c.closing = append(c.closing, e.client)
	}
	closing := c.takeClosing()
	c.mu.Unlock()
	c.disconnect(closing)
}

func (c *ClientCache) takeClosing() []*mongo.Client {
	closing := c.closing
	c.closing = nil
	return closing
}

func (c *ClientCache) disconnect(clients []*mongo.Client) {
	for _, client := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		if err := client.Disconnect(ctx); err != nil {
			c.logger.Warn("Failed to disconnect store client", "error", err)
		}
		cancel()
	}
}

// Len returns the number of cached clients.
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Close evicts every client. Clients still used by scans are disconnected
// when those scans finish.
func (c *ClientCache) Close() {
	c.mu.Lock()
	c.cache.Purge()
	metrics.SetClientCacheSize(0)
	closing := c.takeClosing()
	c.mu.Unlock()
	c.disconnect(closing)
}
