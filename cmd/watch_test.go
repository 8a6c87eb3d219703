package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iksnae/msghelp/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithEngine(t *testing.T) {
	kv, err := internal.NewStore(internal.StoreTypeMemory)
	require.NoError(t, err)
	engine := internal.NewEngine(internal.DefaultEngineConfig(), kv, nil, internal.NopNotifier{})

	boom := errors.New("listener failed")
	err = runWithEngine(context.Background(), engine, func(ctx context.Context) error {
		// the engine answers while fn runs
		res, err := engine.Do(ctx, internal.Command{Type: internal.CmdGetDebugInfo})
		assert.NoError(t, err)
		assert.True(t, res.OK)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// the loop has stopped with fn
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = engine.Do(ctx, internal.Command{Type: internal.CmdGetDebugInfo})
	assert.ErrorIs(t, err, internal.ErrEngineStopped)
}

func TestRunWithEngine_ParentCancel(t *testing.T) {
	kv, err := internal.NewStore(internal.StoreTypeMemory)
	require.NoError(t, err)
	engine := internal.NewEngine(internal.DefaultEngineConfig(), kv, nil, internal.NopNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runWithEngine(ctx, engine, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithEngine did not return")
	}
}
