package cache

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNetwork = errors.New("connection reset")

var fastBackoff = Backoff{Attempts: 3, Delay: time.Millisecond}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "scene:a"); hit {
		t.Error("empty cache reported a hit")
	}
	if err := c.Set(ctx, "scene:a", []byte(`{"spheres":[]}`), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "scene:a")
	if err != nil || !hit || string(data) != `{"spheres":[]}` {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "scene:a"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "scene:a"); hit {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "scene:a"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry reported a hit")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}

	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl missed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	base := SceneKeyOpts{LayerSpacing: 4, NeuronSpacing: 1.5, WeightMode: "stable"}
	s1 := k.SceneKey("abc", base)
	if !strings.HasPrefix(s1, "scene:") {
		t.Errorf("SceneKey prefix: %s", s1)
	}
	if s1 != k.SceneKey("abc", base) {
		t.Error("SceneKey should be deterministic")
	}
	if s1 == k.SceneKey("abd", base) {
		t.Error("different architectures share a scene key")
	}
	next := base
	next.Epoch = 1
	if s1 == k.SceneKey("abc", next) {
		t.Error("different epochs share a scene key")
	}

	a1 := k.ArtifactKey(s1, ArtifactKeyOpts{Format: "svg"})
	a2 := k.ArtifactKey(s1, ArtifactKeyOpts{Format: "png"})
	if a1 == a2 || !strings.HasPrefix(a1, "artifact:") {
		t.Errorf("ArtifactKey: %s vs %s", a1, a2)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "user:123:")
	key := scoped.SceneKey("abc", SceneKeyOpts{})
	if want := "user:123:" + NewDefaultKeyer().SceneKey("abc", SceneKeyOpts{}); key != want {
		t.Errorf("SceneKey = %s, want %s", key, want)
	}
	if got := scoped.ArtifactKey("s", ArtifactKeyOpts{}); !strings.HasPrefix(got, "user:123:artifact:") {
		t.Errorf("ArtifactKey not prefixed: %s", got)
	}
}

func TestTransient(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) != nil")
	}
	err := Transient(errNetwork)
	if !IsTransient(err) || !errors.Is(err, errNetwork) {
		t.Errorf("Transient(%v) lost its marking or cause", errNetwork)
	}
	if err.Error() != errNetwork.Error() {
		t.Errorf("message = %q", err.Error())
	}
	if IsTransient(errNetwork) {
		t.Error("unmarked error reported transient")
	}
}

func TestBackoff(t *testing.T) {
	ctx := context.Background()
	errPermanent := errors.New("WRONGTYPE")

	tests := []struct {
		name      string
		policy    Backoff
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"success", fastBackoff, 0, nil, 1, false},
		{"permanent", fastBackoff, 5, errPermanent, 1, true},
		{"retry once", fastBackoff, 1, Transient(errNetwork), 2, false},
		{"exhausted", fastBackoff, 5, Transient(errNetwork), 3, true},
		{"single attempt", Backoff{}, 5, Transient(errNetwork), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := tt.policy.Do(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Backoff{Attempts: 3, Delay: time.Hour}.Do(ctx, func() error {
		return Transient(errNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
	if !IsTransient(classify(&net.OpError{Op: "read", Net: "tcp", Err: errNetwork})) {
		t.Error("network error not transient")
	}
	if IsTransient(classify(errNetwork)) {
		t.Error("command error classified transient")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("LAYERVIZ_TEST_REDIS")
	if addr == "" {
		t.Skip("LAYERVIZ_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr, WithRedisPrefix("layerviz-test:"))
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry survived Delete")
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	c := NewRedisCacheFromClient(client, WithRedisBackoff(Backoff{Attempts: 2, Delay: time.Millisecond}))
	defer c.Close()

	if _, _, err := c.Get(context.Background(), "k"); !IsTransient(err) {
		t.Errorf("Get error = %v, want a transient error", err)
	}
}
