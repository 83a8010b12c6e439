// Package memory is an in-process realtime.Store. A single goroutine owns
// the tree and serializes every command, so there is no shared state.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmehra2102/food-storefront/internal/realtime"
)

type op int

const (
	opSet op = iota
	opUpdate
	opGet
	opListen
	opUnlisten
	opCount
)

type command struct {
	op       op
	segs     []string
	value    any
	fields   map[string]any
	listener *realtime.Listener
	reply    chan result
}

type result struct {
	value any
	count int
}

// Store keeps the whole tree in memory.
type Store struct {
	log       *slog.Logger
	commands  chan command
	quit      chan struct{}
	closeOnce sync.Once
	keyFn     func() string
	timeout   time.Duration
	root      any
	listeners map[*realtime.Listener][]string
}

type Option func(*Store)

// WithKeyFunc overrides push key generation.
func WithKeyFunc(fn func() string) Option {
	return func(s *Store) { s.keyFn = fn }
}

func New(log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		log:       log,
		commands:  make(chan command, 32),
		quit:      make(chan struct{}),
		keyFn:     realtime.NewKey,
		timeout:   2 * time.Second,
		listeners: map[*realtime.Listener][]string{},
	}
	for _, o := range opts {
		o(s)
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		case <-s.quit:
			for l := range s.listeners {
				l.Close()
			}
			return
		}
	}
}

func (s *Store) apply(cmd command) {
	switch cmd.op {
	case opSet:
		s.root = realtime.Assign(s.root, cmd.segs, cmd.value)
		s.broadcast(cmd.segs)
		cmd.reply <- result{}
	case opUpdate:
		s.root = realtime.Merge(s.root, cmd.segs, cmd.fields)
		s.broadcast(cmd.segs)
		cmd.reply <- result{}
	case opGet:
		cmd.reply <- result{value: realtime.Clone(realtime.Lookup(s.root, cmd.segs))}
	case opListen:
		s.listeners[cmd.listener] = cmd.segs
		cmd.listener.Notify(s.snapshot(cmd.segs))
		cmd.reply <- result{}
	case opUnlisten:
		delete(s.listeners, cmd.listener)
		cmd.listener.Close()
		cmd.reply <- result{}
	case opCount:
		cmd.reply <- result{count: len(s.listeners)}
	}
}

// broadcast notifies listeners whose path is an ancestor or a descendant of
// the changed path.
func (s *Store) broadcast(changed []string) {
	for l, segs := range s.listeners {
		if related(segs, changed) {
			l.Notify(s.snapshot(segs))
		}
	}
}

func (s *Store) snapshot(segs []string) realtime.Snapshot {
	return realtime.Snapshot{
		Path:  realtime.Join(segs...),
		Value: realtime.Clone(realtime.Lookup(s.root, segs)),
	}
}

func related(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Store) send(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)
	select {
	case s.commands <- cmd:
	case <-s.quit:
		return result{}, realtime.ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-time.After(s.timeout):
		return result{}, fmt.Errorf("memory store queue is busy")
	}
	select {
	case res := <-cmd.reply:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (s *Store) Push(ctx context.Context, path string, value any) (string, error) {
	if len(realtime.Split(path)) == 0 {
		return "", realtime.ErrInvalidPath
	}
	key := s.keyFn()
	if key == "" {
		return "", nil
	}
	if err := s.Set(ctx, realtime.Join(append(realtime.Split(path), key)...), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) Set(ctx context.Context, path string, value any) error {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.ErrInvalidPath
	}
	plain, err := realtime.Plain(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = s.send(ctx, command{op: opSet, segs: segs, value: plain})
	return err
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.ErrInvalidPath
	}
	plain := make(map[string]any, len(fields))
	for k, v := range fields {
		p, err := realtime.Plain(v)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", path, k, err)
		}
		plain[k] = p
	}
	_, err := s.send(ctx, command{op: opUpdate, segs: segs, fields: plain})
	return err
}

func (s *Store) Remove(ctx context.Context, path string) error {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.ErrInvalidPath
	}
	_, err := s.send(ctx, command{op: opSet, segs: segs})
	return err
}

func (s *Store) Get(ctx context.Context, path string) (realtime.Snapshot, error) {
	segs := realtime.Split(path)
	res, err := s.send(ctx, command{op: opGet, segs: segs})
	if err != nil {
		return realtime.Snapshot{}, err
	}
	return realtime.Snapshot{Path: realtime.Join(segs...), Value: res.value}, nil
}

func (s *Store) Listen(ctx context.Context, path string, onValue func(realtime.Snapshot), onError func(error)) (realtime.Unsubscribe, error) {
	segs := realtime.Split(path)
	l := realtime.NewListener(realtime.Join(segs...), onValue, onError)
	if _, err := s.send(ctx, command{op: opListen, segs: segs, listener: l}); err != nil {
		l.Close()
		return nil, err
	}
	s.log.Debug("memory listener registered", "path", l.Path)
	return func() {
		l.Close()
		_, _ = s.send(context.Background(), command{op: opUnlisten, listener: l})
	}, nil
}

// Listeners reports how many listeners are registered.
func (s *Store) Listeners(ctx context.Context) (int, error) {
	res, err := s.send(ctx, command{op: opCount})
	return res.count, err
}

func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}
