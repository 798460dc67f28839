package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/pkg/async"
)

func TestExecuteCollectsAllResults(t *testing.T) {
	tasks := make([]async.Task, 10)
	for i := range tasks {
		value := i
		tasks[i] = async.Task{
			Name: fmt.Sprintf("task-%d", value),
			Execute: func() (interface{}, error) {
				return value * 2, nil
			},
		}
	}

	results := async.NewPool(3).Execute(context.Background(), tasks)
	require.Len(t, results, 10)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("task-%d", i)
		result, ok := results[name]
		require.True(t, ok)
		assert.NoError(t, result.Err)
		assert.Equal(t, i*2, result.Data)
	}
}

func TestExecuteKeepsErrorsPerTask(t *testing.T) {
	boom := errors.New("boom")
	tasks := []async.Task{
		{Name: "ok", Execute: func() (interface{}, error) { return "fine", nil }},
		{Name: "broken", Execute: func() (interface{}, error) { return nil, boom }},
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)
	require.Len(t, results, 2)
	assert.NoError(t, results["ok"].Err)
	assert.ErrorIs(t, results["broken"].Err, boom)
}

func TestExecuteCancelledContextReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	release := make(chan struct{})

	tasks := []async.Task{
		{Name: "fast", Execute: func() (interface{}, error) {
			started.Add(1)
			return 1, nil
		}},
		{Name: "stuck", Execute: func() (interface{}, error) {
			started.Add(1)
			<-release
			return 2, nil
		}},
	}

	// One worker: "fast" completes, "stuck" blocks until the context is
	// cancelled underneath it.
	go func() {
		for started.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	results := async.NewPool(1).Execute(ctx, tasks)
	close(release)

	_, hasStuck := results["stuck"]
	assert.False(t, hasStuck, "unfinished tasks have no entry")
	if result, ok := results["fast"]; ok {
		assert.Equal(t, 1, result.Data)
	}
}

func TestNewPoolClampsWorkerCount(t *testing.T) {
	results := async.NewPool(0).Execute(context.Background(), []async.Task{
		{Name: "only", Execute: func() (interface{}, error) { return true, nil }},
	})
	require.Len(t, results, 1)
	assert.Equal(t, true, results["only"].Data)
}
