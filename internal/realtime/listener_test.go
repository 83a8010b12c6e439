package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerDeliversErrorsThenLatestValue(t *testing.T) {
	var mu sync.Mutex
	var events []string
	block := make(chan struct{})

	l := NewListener("orders", func(s Snapshot) {
		<-block
		mu.Lock()
		events = append(events, s.Value.(string))
		mu.Unlock()
	}, func(err error) {
		mu.Lock()
		events = append(events, "err:"+err.Error())
		mu.Unlock()
	})
	defer l.Close()

	l.Notify(Snapshot{Value: "v1"})
	time.Sleep(20 * time.Millisecond)
	// v1 is being delivered; v2 is superseded by v3
	l.Notify(Snapshot{Value: "v2"})
	l.Fail(errors.New("boom"))
	l.Notify(Snapshot{Value: "v3"})
	close(block)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"v1", "err:boom", "v3"}, events)
}

func TestListenerCloseStopsDelivery(t *testing.T) {
	calls := 0
	l := NewListener("orders", func(Snapshot) { calls++ }, nil)
	l.Close()
	l.Close()
	l.Notify(Snapshot{Value: 1})
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls)

	select {
	case <-l.Done():
	default:
		t.Fatal("listener not done")
	}
}
