// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockSweeper is a test double for the Sweeper interface.
type mockSweeper struct {
	ttl     time.Duration
	evicted int
	sweeps  atomic.Int32
}

func (m *mockSweeper) EvictExpired() int {
	m.sweeps.Add(1)
	return m.evicted
}

func (m *mockSweeper) TTL() time.Duration { return m.ttl }

func TestCacheJanitorService_Interface(t *testing.T) {
	var _ suture.Service = (*CacheJanitorService)(nil)
}

func TestNewCacheJanitorService_DefaultInterval(t *testing.T) {
	sweeper := &mockSweeper{ttl: 45 * time.Second}

	svc := NewCacheJanitorService(sweeper, 0)
	if svc.interval != 45*time.Second {
		t.Errorf("expected interval to default to cache TTL 45s, got %v", svc.interval)
	}

	svc = NewCacheJanitorService(sweeper, 5*time.Second)
	if svc.interval != 5*time.Second {
		t.Errorf("expected explicit interval 5s, got %v", svc.interval)
	}
}

func TestCacheJanitorService_SweepsPeriodically(t *testing.T) {
	sweeper := &mockSweeper{ttl: time.Minute, evicted: 2}
	svc := NewCacheJanitorService(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	deadline := time.After(time.Second)
	for sweeper.sweeps.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", sweeper.sweeps.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Serve did not return after context cancellation")
	}
}

func TestCacheJanitorService_String(t *testing.T) {
	svc := NewCacheJanitorService(&mockSweeper{ttl: time.Minute}, 0)
	if svc.String() != "cache-janitor" {
		t.Errorf("expected 'cache-janitor', got %q", svc.String())
	}
}
