// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New(time.Minute)
	c.Set("stats", 42)

	val, ok := c.Get("stats")
	if !ok {
		t.Fatal("expected hit")
	}
	if val.(int) != 42 {
		t.Errorf("value = %v, want 42", val)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
}

func TestExpiration(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("gene:TP53", "detail")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("gene:TP53"); ok {
		t.Error("expected entry to be expired")
	}
}

func TestSetWithTTLOverride(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.SetWithTTL("long", "lived", time.Minute)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("long"); !ok {
		t.Error("entry with long TTL should survive default TTL")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("expected empty cache after Clear")
	}
	if stats := c.GetStats(); stats.TotalKeys != 0 {
		t.Errorf("total keys = %d, want 0", stats.TotalKeys)
	}
}

func TestHitRate(t *testing.T) {
	c := New(time.Minute)
	c.Set("key", "value")

	c.Get("key")    // hit
	c.Get("absent") // miss

	if rate := c.HitRate(); rate != 50.0 {
		t.Errorf("hit rate = %v, want 50.0", rate)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%10)
			c.Set(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()
}

func TestGenerateKeyDeterministic(t *testing.T) {
	params := map[string]interface{}{"page": 1, "per_page": 50}

	k1 := GenerateKey("candidates", params)
	k2 := GenerateKey("candidates", params)
	if k1 != k2 {
		t.Errorf("keys differ: %q vs %q", k1, k2)
	}

	k3 := GenerateKey("candidates", map[string]interface{}{"page": 2, "per_page": 50})
	if k1 == k3 {
		t.Error("different params should produce different keys")
	}
}
