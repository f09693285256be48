package mongotable

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hugr-lab/docbridge/connection"
)

// Clients connect lazily, so unreachable hosts are enough to exercise the cache.
func testTarget(t *testing.T, host string) *connection.Target {
	t.Helper()
	target, err := connection.Resolve(connection.Source{
		Host:       host,
		Database:   "db",
		Collection: "c",
		Options:    "serverSelectionTimeoutMS=100",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return target
}

func disconnected(t *testing.T, c *mongo.Client) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return errors.Is(c.Disconnect(ctx), mongo.ErrClientDisconnected)
}

func TestClientCacheHit(t *testing.T) {
	cache, err := NewClientCache(2, nil)
	if err != nil {
		t.Fatalf("NewClientCache failed: %v", err)
	}
	defer cache.Close()

	a1, release1, err := cache.Acquire(testTarget(t, "127.0.0.1:1"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	a2, release2, err := cache.Acquire(testTarget(t, "127.0.0.1:1"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if a1 != a2 {
		t.Error("expected the same client for the same target")
	}
	b, release3, err := cache.Acquire(testTarget(t, "127.0.0.1:2"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if b == a1 {
		t.Error("expected a different client for another target")
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 cached clients, got %d", cache.Len())
	}
	release1()
	release1()
	release2()
	release3()
}

func TestClientCacheEvictsIdleClient(t *testing.T) {
	cache, err := NewClientCache(1, nil)
	if err != nil {
		t.Fatalf("NewClientCache failed: %v", err)
	}
	defer cache.Close()

	a, release, err := cache.Acquire(testTarget(t, "127.0.0.1:1"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	release()

	_, releaseB, err := cache.Acquire(testTarget(t, "127.0.0.1:2"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer releaseB()

	if cache.Len() != 1 {
		t.Errorf("expected 1 cached client, got %d", cache.Len())
	}
	if !disconnected(t, a) {
		t.Error("expected evicted idle client to be disconnected")
	}
}

func TestClientCacheKeepsClientInUse(t *testing.T) {
	cache, err := NewClientCache(1, nil)
	if err != nil {
		t.Fatalf("NewClientCache failed: %v", err)
	}
	defer cache.Close()

	a, releaseA, err := cache.Acquire(testTarget(t, "127.0.0.1:1"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	_, releaseB, err := cache.Acquire(testTarget(t, "127.0.0.1:2"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer releaseB()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := a.Ping(ctx, nil); errors.Is(err, mongo.ErrClientDisconnected) {
		t.Fatal("expected evicted client to stay connected while in use")
	}

	releaseA()
	if !disconnected(t, a) {
		t.Error("expected evicted client to be disconnected after release")
	}
}

func TestClientCacheClose(t *testing.T) {
	cache, err := NewClientCache(4, nil)
	if err != nil {
		t.Fatalf("NewClientCache failed: %v", err)
	}
	a, release, err := cache.Acquire(testTarget(t, "127.0.0.1:1"))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	release()
	cache.Close()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d", cache.Len())
	}
	if !disconnected(t, a) {
		t.Error("expected client to be disconnected on close")
	}
}
