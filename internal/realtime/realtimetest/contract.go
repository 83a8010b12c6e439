// Package realtimetest holds the behaviour every realtime.Store backend
// must share.
package realtimetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/internal/realtime"
)

// Recorder collects listener callbacks.
type Recorder struct {
	mu     sync.Mutex
	values []any
	errs   []error
}

func (r *Recorder) OnValue(s realtime.Snapshot) {
	r.mu.Lock()
	r.values = append(r.values, s.Value)
	r.mu.Unlock()
}

func (r *Recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *Recorder) Last() (any, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return nil, 0
	}
	return r.values[len(r.values)-1], len(r.values)
}

func (r *Recorder) Count() int {
	_, n := r.Last()
	return n
}

const wait = 3 * time.Second

// Run exercises a fresh store produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) realtime.Store) {
	t.Run("push set get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		k1, err := s.Push(ctx, "orders", map[string]any{"notes": "a"})
		require.NoError(t, err)
		k2, err := s.Push(ctx, "orders", map[string]any{"notes": "b"})
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)
		assert.Less(t, k1, k2, "push keys sort by creation")

		snap, err := s.Get(ctx, "orders")
		require.NoError(t, err)
		assert.Len(t, snap.Children(), 2)

		snap, err = s.Get(ctx, "orders/"+k1+"/notes")
		require.NoError(t, err)
		assert.Equal(t, "a", snap.Value)

		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"email": "a@b.c", "roles": map[string]any{"admin": false}}))
		snap, err = s.Get(ctx, "users/u1/roles/admin")
		require.NoError(t, err)
		assert.Equal(t, false, snap.Value)

		snap, err = s.Get(ctx, "missing/nothing")
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})

	t.Run("update merges and nil removes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "orders/o1", map[string]any{"status": "CREATED", "notes": "x", "total": 3}))
		require.NoError(t, s.Update(ctx, "orders/o1", map[string]any{"status": "PAID", "notes": nil}))

		snap, err := s.Get(ctx, "orders/o1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"status": "PAID", "total": 3.0}, snap.Value)

		require.NoError(t, s.Update(ctx, "users/u1/roles", map[string]any{"admin": true}))
		snap, err = s.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"roles": map[string]any{"admin": true}}, snap.Value)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "orders/o1", map[string]any{"status": "CREATED"}))
		require.NoError(t, s.Remove(ctx, "orders/o1"))
		snap, err := s.Get(ctx, "orders")
		require.NoError(t, err)
		assert.False(t, snap.Exists())

		require.NoError(t, s.Remove(ctx, "orders/never-there"))
	})

	t.Run("listen delivers full value", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec := &Recorder{}
		unsubscribe, err := s.Listen(ctx, "orders", rec.OnValue, rec.OnError)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return rec.Count() >= 1 }, wait, 10*time.Millisecond)
		v, _ := rec.Last()
		assert.Nil(t, v)

		_, err = s.Push(ctx, "orders", map[string]any{"n": 1})
		require.NoError(t, err)
		_, err = s.Push(ctx, "orders", map[string]any{"n": 2})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			v, _ := rec.Last()
			m, _ := v.(map[string]any)
			return len(m) == 2
		}, wait, 10*time.Millisecond)

		// writes elsewhere do not disturb the value
		require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"email": "x"}))

		unsubscribe()
		n := rec.Count()
		_, err = s.Push(ctx, "orders", map[string]any{"n": 3})
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, n, rec.Count(), "no delivery after unsubscribe")
	})

	t.Run("invalid path", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.ErrorIs(t, s.Set(ctx, "/", 1), realtime.ErrInvalidPath)
		require.ErrorIs(t, s.Remove(ctx, ""), realtime.ErrInvalidPath)
		_, err := s.Push(ctx, "", map[string]any{})
		require.Error(t, err)
	})
}
