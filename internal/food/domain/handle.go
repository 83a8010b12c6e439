package domain

import "sync"

// Handle is the closable registration of the orders listener kept in State.
// Close is idempotent and safe on a nil Handle.
type Handle struct {
	once    sync.Once
	closeFn func()
}

func NewHandle(closeFn func()) *Handle {
	return &Handle{closeFn: closeFn}
}

func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.closeFn != nil {
			h.closeFn()
		}
	})
}
