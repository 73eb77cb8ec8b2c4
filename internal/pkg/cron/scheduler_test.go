package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()

	var calls []string
	s.AddJob("first", time.Hour, func(ctx context.Context) error {
		calls = append(calls, "first")
		return nil
	})
	s.AddJob("second", time.Hour, func(ctx context.Context) error {
		calls = append(calls, "second")
		return errors.New("boom")
	})
	s.AddJob("third", time.Hour, func(ctx context.Context) error {
		calls = append(calls, "third")
		return nil
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second: boom")
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := NewScheduler()

	var observed error
	s.OnRun = func(name string, err error, d time.Duration) { observed = err }
	s.AddJob("panicky", time.Hour, func(ctx context.Context) error {
		panic("bad state")
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad state")
	assert.Equal(t, err.Error(), "panicky: "+observed.Error())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler()

	var runs atomic.Int32
	done := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start()
	s.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}

	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}
