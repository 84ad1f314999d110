package httputil

import (
	"errors"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)

	type remote struct {
		Mode  string  `json:"mode"`
		Speed float64 `json:"speed"`
	}
	if err := c.Set("config", remote{Mode: "ring", Speed: 1.5}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	var got remote
	ok, err := c.Get("config", &got)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}
	if got.Mode != "ring" || got.Speed != 1.5 {
		t.Errorf("Get() = %+v", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	var result string
	ok, err := c.Get("missing", &result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("Get() returned true for missing key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 10*time.Millisecond)

	if err := c.Set("key", "value"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	var res string
	if ok, err := c.Get("key", &res); err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	ok, err := c.Get("key", &res)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("got error %v, want ErrExpired", err)
	}
	if ok {
		t.Error("Get() returned true for expired key")
	}
}

func TestCache_Namespace(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	cfg := c.Namespace("config:")
	dims := c.Namespace("dims:")

	if err := cfg.Set("a", "config-data"); err != nil {
		t.Fatal(err)
	}
	if err := dims.Set("a", "dims-data"); err != nil {
		t.Fatal(err)
	}

	var v string
	if ok, _ := cfg.Get("a", &v); !ok || v != "config-data" {
		t.Errorf("cfg.Get() = %q", v)
	}
	if ok, _ := dims.Get("a", &v); !ok || v != "dims-data" {
		t.Errorf("dims.Get() = %q", v)
	}
	if found, _ := c.Get("a", &v); found {
		t.Error("value visible outside its namespace")
	}

	chained := cfg.Namespace("v1:")
	if err := chained.Set("b", "x"); err != nil {
		t.Fatal(err)
	}
	if found, _ := cfg.Get("b", &v); found {
		t.Error("chained value visible without the full prefix")
	}
	if chained.Dir() != c.Dir() || chained.TTL() != c.TTL() {
		t.Error("namespace should share dir and TTL")
	}
}

func TestCache_KeyStability(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	if c.keyPath("test") != c.keyPath("test") {
		t.Error("path should be deterministic")
	}
	if c.keyPath("test") == c.keyPath("other") {
		t.Error("different keys should produce different paths")
	}
}
