package redis

import (
	"testing"
	"time"

	"github.com/pierrevannier/freelancehub-backend/pkg/config"
)

func TestOptionsFromConfigURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://:pass@localhost:6380/2",
		PoolSize: 15,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Errorf("addr = %s", opts.Addr)
	}
	if opts.DB != 2 {
		t.Errorf("db = %d", opts.DB)
	}
	if opts.PoolSize != 15 {
		t.Errorf("pool size = %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "redis.internal:6379",
		Password:    "secret",
		DB:          1,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "redis.internal:6379" {
		t.Errorf("addr = %s", opts.Addr)
	}
	if opts.Password != "secret" {
		t.Errorf("password not carried")
	}
	if opts.DialTimeout != 3*time.Second {
		t.Errorf("dial timeout = %s", opts.DialTimeout)
	}
}

func TestOptionsFromConfigEmpty(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when url and address are both empty")
	}
}

func TestBuildKey(t *testing.T) {
	c := &Client{}
	if got := c.RateLimitKey("activation:user:u1"); got != "fh:rate_limit:activation:user:u1" {
		t.Fatalf("got %q", got)
	}
	if got := c.AccessSessionKey("abc"); got != "fh:session:access:abc" {
		t.Fatalf("got %q", got)
	}
}
