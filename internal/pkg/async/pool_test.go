package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/pkg/async"
)

func TestPoolExecute(t *testing.T) {
	t.Run("collects every result by name", func(t *testing.T) {
		tasks := []async.Task{
			{Name: "one", Execute: func(context.Context) (interface{}, error) { return 1, nil }},
			{Name: "two", Execute: func(context.Context) (interface{}, error) { return 2, nil }},
			{Name: "broken", Execute: func(context.Context) (interface{}, error) { return nil, errors.New("boom") }},
		}

		var seen int32
		results := async.NewPool(2).Execute(context.Background(), tasks, func(async.Result) {
			atomic.AddInt32(&seen, 1)
		})

		require.Len(t, results, 3)
		assert.Equal(t, 1, results["one"].Data)
		assert.Equal(t, 2, results["two"].Data)
		assert.EqualError(t, results["broken"].Err, "boom")
		assert.Equal(t, int32(3), seen)
	})

	t.Run("runs tasks concurrently", func(t *testing.T) {
		var running, peak int32
		task := func(context.Context) (interface{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		}

		tasks := []async.Task{{Name: "a", Execute: task}, {Name: "b", Execute: task}, {Name: "c", Execute: task}}
		async.NewPool(3).Execute(context.Background(), tasks, nil)
		assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
	})

	t.Run("recovers panicking tasks", func(t *testing.T) {
		tasks := []async.Task{
			{Name: "panics", Execute: func(context.Context) (interface{}, error) { panic("bad") }},
		}
		results := async.NewPool(1).Execute(context.Background(), tasks, nil)
		assert.Error(t, results["panics"].Err)
	})

	t.Run("cancelled context skips pending tasks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran int32
		tasks := []async.Task{
			{Name: "a", Execute: func(context.Context) (interface{}, error) { atomic.AddInt32(&ran, 1); return nil, nil }},
		}
		results := async.NewPool(1).Execute(ctx, tasks, nil)
		assert.ErrorIs(t, results["a"].Err, context.Canceled)
		assert.Equal(t, int32(0), ran)
	})
}
