package realtime

import "sync"

// Listener delivers snapshots to a callback on its own goroutine so writers
// never block on slow consumers. Only the latest pending snapshot is kept:
// every snapshot is a full value, so skipped ones carry no extra information.
// Errors are queued and delivered in order before the next snapshot.
type Listener struct {
	Path string

	onValue func(Snapshot)
	onError func(error)

	mu      sync.Mutex
	pending *Snapshot
	errs    []error
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewListener(path string, onValue func(Snapshot), onError func(error)) *Listener {
	l := &Listener{
		Path:    path,
		onValue: onValue,
		onError: onError,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go l.loop()
	return l
}

func (l *Listener) Notify(s Snapshot) {
	l.mu.Lock()
	l.pending = &s
	l.mu.Unlock()
	l.signal()
}

func (l *Listener) Fail(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
	l.signal()
}

// Close stops delivery. Callbacks already running finish; nothing is
// delivered afterwards.
func (l *Listener) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Listener) Done() <-chan struct{} { return l.done }

func (l *Listener) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Listener) loop() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
		l.mu.Lock()
		errs := l.errs
		l.errs = nil
		snap := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, err := range errs {
			if l.closed() {
				return
			}
			if l.onError != nil {
				l.onError(err)
			}
		}
		if snap != nil && !l.closed() && l.onValue != nil {
			l.onValue(*snap)
		}
	}
}

func (l *Listener) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
