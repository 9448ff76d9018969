package supervisor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/saga_ive_go/internal/supervisor"
	"github.com/on-the-ground/saga_ive_go/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_RunsChildren(t *testing.T) {
	sv, end := supervisor.New(context.Background(), log.NewTest())
	defer end()

	var ran atomic.Int32
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.True(t, sv.Go(context.Background(), func(ctx context.Context) {
			ran.Add(1)
			done <- struct{}{}
		}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for children")
		}
	}
	assert.Equal(t, int32(3), ran.Load())
}

func TestSupervisor_TeardownCancelsAndWaits(t *testing.T) {
	sv, end := supervisor.New(context.Background(), log.NewTest())

	var finished atomic.Bool
	started := make(chan struct{})
	sv.Go(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		finished.Store(true)
	})
	<-started

	end()
	assert.True(t, finished.Load(), "teardown must wait for cancelled children")
	assert.False(t, sv.Go(context.Background(), func(context.Context) {}))
}

func TestSupervisor_ParentCancelPropagates(t *testing.T) {
	sv, end := supervisor.New(context.Background(), log.NewTest())
	defer end()

	parent, cancel := context.WithCancel(context.Background())
	unblocked := make(chan struct{})
	sv.Go(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(unblocked)
	})

	cancel()
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("expected child to unblock on parent cancel")
	}
}

func TestSupervisor_RecoversPanics(t *testing.T) {
	sv, end := supervisor.New(context.Background(), log.NewTest())

	sv.Go(context.Background(), func(context.Context) { panic("boom") })
	assert.NotPanics(t, end)
}
