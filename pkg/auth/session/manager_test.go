package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type passthroughKeyer struct{}

func (passthroughKeyer) AccessSessionKey(accessID string) string { return "session:" + accessID }

func testManager() (*Manager, *memStore) {
	store := newMemStore()
	return &Manager{store: store, keyer: passthroughKeyer{}, ttl: time.Hour}, store
}

func TestEstablishHasSessionRevoke(t *testing.T) {
	m, _ := testManager()
	ctx := context.Background()

	ok, err := m.HasSession(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("fresh manager should have no session (ok=%v err=%v)", ok, err)
	}

	if err := m.Establish(ctx, "jti-1"); err != nil {
		t.Fatalf("establish: %v", err)
	}
	ok, err = m.HasSession(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("session should exist (ok=%v err=%v)", ok, err)
	}

	if err := m.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, _ = m.HasSession(ctx, "jti-1")
	if ok {
		t.Fatal("session should be gone after revoke")
	}
}

func TestHasSessionEmptyID(t *testing.T) {
	m, _ := testManager()
	ok, err := m.HasSession(context.Background(), "  ")
	if err != nil || ok {
		t.Fatalf("blank id must resolve to no session (ok=%v err=%v)", ok, err)
	}
}
