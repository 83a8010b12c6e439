// Package redisstore stores each top-level collection as a Redis hash whose
// fields are child keys and whose values are the JSON encoded child trees.
// Writes publish the collection name on a change channel; listeners re-read
// the collection when it changes.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/food-storefront/internal/realtime"
)

const maxTxRetries = 8

var ErrNotObject = errors.New("redis store: collection value must be an object")

type Store struct {
	log     *slog.Logger
	rdb     *redis.Client
	prefix  string
	channel string
	keyFn   func() string
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
		s.channel = prefix + "changes"
	}
}

func WithKeyFunc(fn func() string) Option {
	return func(s *Store) { s.keyFn = fn }
}

func New(log *slog.Logger, rdb *redis.Client, opts ...Option) *Store {
	s := &Store{
		log:     log,
		rdb:     rdb,
		prefix:  "rt:",
		channel: "rt:changes",
		keyFn:   realtime.NewKey,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) hashKey(collection string) string {
	return s.prefix + collection
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
	if len(segs) == 1 {
		if _, ok := plain.(map[string]any); !ok && plain != nil {
			return ErrNotObject
		}
	}
	return s.mutate(ctx, segs, func(tree any) any {
		return realtime.Assign(tree, segs[1:], plain)
	})
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
	return s.mutate(ctx, segs, func(tree any) any {
		return realtime.Merge(tree, segs[1:], plain)
	})
}

func (s *Store) Remove(ctx context.Context, path string) error {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.ErrInvalidPath
	}
	return s.mutate(ctx, segs, func(tree any) any {
		return realtime.Assign(tree, segs[1:], nil)
	})
}

// mutate runs apply on the collection tree (child key -> child value)
// inside an optimistic WATCH transaction. Only the child addressed by
// segs[1] is read and written unless the path is the collection itself.
func (s *Store) mutate(ctx context.Context, segs []string, apply func(tree any) any) error {
	key := s.hashKey(segs[0])
	txf := func(tx *redis.Tx) error {
		tree, err := s.readTree(ctx, tx, segs)
		if err != nil {
			return err
		}
		next := apply(tree)
		children, _ := next.(map[string]any)
		if next != nil && children == nil {
			return ErrNotObject
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(segs) == 1 {
				pipe.Del(ctx, key)
				for k, v := range children {
					raw, err := json.Marshal(v)
					if err != nil {
						return err
					}
					pipe.HSet(ctx, key, k, raw)
				}
			} else if child, ok := children[segs[1]]; ok {
				raw, err := json.Marshal(child)
				if err != nil {
					return err
				}
				pipe.HSet(ctx, key, segs[1], raw)
			} else {
				pipe.HDel(ctx, key, segs[1])
			}
			pipe.Publish(ctx, s.channel, segs[0])
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis write %s: %w", realtime.Join(segs...), err)
		}
		return nil
	}
	return fmt.Errorf("redis write %s: %w", realtime.Join(segs...), redis.TxFailedErr)
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (s *Store) readTree(ctx context.Context, r hashReader, segs []string) (any, error) {
	key := s.hashKey(segs[0])
	if len(segs) == 1 {
		all, err := r.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, nil
		}
		tree := make(map[string]any, len(all))
		for k, raw := range all {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("decode %s/%s: %w", segs[0], k, err)
			}
			tree[k] = v
		}
		return tree, nil
	}
	raw, err := r.HGet(ctx, key, segs[1]).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", segs[0], segs[1], err)
	}
	return map[string]any{segs[1]: v}, nil
}

func (s *Store) Get(ctx context.Context, path string) (realtime.Snapshot, error) {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.Snapshot{}, realtime.ErrInvalidPath
	}
	tree, err := s.readTree(ctx, s.rdb, segs)
	if err != nil {
		return realtime.Snapshot{}, fmt.Errorf("redis read %s: %w", path, err)
	}
	return realtime.Snapshot{
		Path:  realtime.Join(segs...),
		Value: realtime.Lookup(tree, segs[1:]),
	}, nil
}

func (s *Store) Listen(ctx context.Context, path string, onValue func(realtime.Snapshot), onError func(error)) (realtime.Unsubscribe, error) {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return nil, realtime.ErrInvalidPath
	}
	ps := s.rdb.Subscribe(ctx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", s.channel, err)
	}

	l := realtime.NewListener(realtime.Join(segs...), onValue, onError)
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	refresh := func() {
		snap, err := s.Get(lctx, l.Path)
		if err != nil {
			if lctx.Err() == nil {
				l.Fail(err)
			}
			return
		}
		l.Notify(snap)
	}

	go func() {
		refresh()
		for msg := range ps.Channel() {
			if msg.Payload != segs[0] {
				continue
			}
			refresh()
		}
	}()
	s.log.Debug("redis listener registered", "path", l.Path)

	return func() {
		cancel()
		l.Close()
		_ = ps.Close()
	}, nil
}
