package application

import (
	"sync"

	"github.com/dmehra2102/food-storefront/internal/order/domain"
	"github.com/dmehra2102/food-storefront/internal/realtime"
)

// Update is one delivery on a Feed: either a full snapshot or an error.
type Update struct {
	Orders []domain.Order
	Err    error
}

// Feed is a cancellable stream of order snapshots. Nothing is delivered
// after Close returns.
type Feed struct {
	updates chan Update
	done    chan struct{}
	once    sync.Once
	unsub   realtime.Unsubscribe
}

func newFeed() *Feed {
	return &Feed{
		updates: make(chan Update, 1),
		done:    make(chan struct{}),
	}
}

func (f *Feed) Updates() <-chan Update { return f.updates }

func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) send(u Update) {
	select {
	case <-f.done:
		return
	default:
	}
	select {
	case f.updates <- u:
	case <-f.done:
	}
}

func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.done)
		if f.unsub != nil {
			f.unsub()
		}
	})
}
