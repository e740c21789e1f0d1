package component

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// LifecycleFactory creates a fresh component instance for one suite run.
type LifecycleFactory func() LifecycleComponent

// StandardLifecycleTests exercises the lifecycle contract every managed
// component must honor: Initialize before Start, idempotent Start and Stop,
// Stop-before-Start as a no-op, and observability calls that are safe in
// every state. Package tests call this with their own factory so the
// contract stays uniform across receiver, scheduler, recorder, and player.
func StandardLifecycleTests(t *testing.T, factory LifecycleFactory) {
	t.Helper()

	t.Run("Observability", func(t *testing.T) {
		c := factory()

		meta := c.Meta()
		require.NotEmpty(t, meta.Name)
		require.NotEmpty(t, meta.Type)

		// Health and flow metrics must be readable before Start.
		_ = c.Health()
		_ = c.DataFlow()
	})

	t.Run("StopBeforeStart", func(t *testing.T) {
		c := factory()
		require.NoError(t, c.Stop(time.Second))
	})

	t.Run("FullCycle", func(t *testing.T) {
		c := factory()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, c.Initialize())
		require.NoError(t, c.Start(ctx))
		require.NoError(t, c.Start(ctx), "second Start is idempotent")

		_ = c.Health()
		_ = c.DataFlow()

		require.NoError(t, c.Stop(5*time.Second))
		require.NoError(t, c.Stop(5*time.Second), "second Stop is idempotent")
	})

	t.Run("ConcurrentObservers", func(t *testing.T) {
		c := factory()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, c.Initialize())
		require.NoError(t, c.Start(ctx))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					_ = c.Health()
					_ = c.DataFlow()
					_ = c.Meta()
				}
			}()
		}
		wg.Wait()

		require.NoError(t, c.Stop(5*time.Second))
	})
}
