package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// memoryHook answers GET, SET and DEL from a map so RedisCache can be
// tested without a server.
type memoryHook struct {
	data map[string]string
	ttls map[string]time.Duration
}

func (h *memoryHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *memoryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *memoryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := h.data[fmt.Sprint(args[1])]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.StatusCmd:
			key := fmt.Sprint(args[1])
			switch v := args[2].(type) {
			case []byte:
				h.data[key] = string(v)
			default:
				h.data[key] = fmt.Sprint(v)
			}
			if len(args) == 5 && args[3] == "ex" {
				h.ttls[key] = time.Duration(args[4].(int64)) * time.Second
			}
			c.SetVal("OK")
		case *redis.IntCmd:
			var n int64
			for _, a := range args[1:] {
				if _, ok := h.data[fmt.Sprint(a)]; ok {
					delete(h.data, fmt.Sprint(a))
					n++
				}
			}
			c.SetVal(n)
		default:
			return next(ctx, cmd)
		}
		return nil
	}
}

func newMemoryRedis(t *testing.T) (*RedisCache, *memoryHook) {
	t.Helper()
	c, err := NewRedisCache("redis://127.0.0.1:6379/0")
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	h := &memoryHook{data: map[string]string{}, ttls: map[string]time.Duration{}}
	c.client.AddHook(h)
	return c, h
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, h := newMemoryRedis(t)

	data, hit, err := c.Get(ctx, "lineage:graph:abc")
	if err != nil {
		t.Fatalf("Get on missing key error: %v", err)
	}
	if hit || data != nil {
		t.Errorf("Get on missing key = %q, %v; want nil, false", data, hit)
	}

	if err := c.Set(ctx, "lineage:graph:abc", []byte(`{"people":[]}`), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if got := h.ttls["lineage:graph:abc"]; got != time.Hour {
		t.Errorf("stored ttl = %v, want 1h", got)
	}

	data, hit, err = c.Get(ctx, "lineage:graph:abc")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit || string(data) != `{"people":[]}` {
		t.Errorf("Get = %q, %v; want stored value", data, hit)
	}

	if err := c.Delete(ctx, "lineage:graph:abc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "lineage:graph:abc"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "lineage:graph:abc"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestRedisCache_GetError(t *testing.T) {
	c, err := NewRedisCache("redis://127.0.0.1:6379/0")
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	defer c.Close()

	fail := errors.New("connection refused")
	c.client.AddHook(errorHook{err: fail})

	if _, hit, err := c.Get(context.Background(), "k"); !errors.Is(err, fail) || hit {
		t.Errorf("Get = hit %v, err %v; want miss and %v", hit, err, fail)
	}
}

type errorHook struct{ err error }

func (h errorHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h errorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h errorHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		cmd.SetErr(h.err)
		return h.err
	}
}
