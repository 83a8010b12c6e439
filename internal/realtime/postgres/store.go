// Package postgres keeps realtime collections in a JSONB table. Every write
// runs in one transaction that also appends a change event to the outbox
// and signals listeners with pg_notify.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/pkg/tracing"
)

const notifyChannel = "realtime_changes"

var ErrNotObject = errors.New("postgres store: collection value must be an object")

// Change is the outbox payload describing one committed write.
type Change struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Value any    `json:"value"`
	At    int64  `json:"at"`
}

const (
	OpSet    = "set"
	OpUpdate = "update"
	OpRemove = "remove"
)

type Store struct {
	log   *slog.Logger
	pool  *pgxpool.Pool
	keyFn func() string
	retry time.Duration
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{
		log:   log,
		pool:  pool,
		keyFn: realtime.NewKey,
		retry: time.Second,
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
	op := OpSet
	if plain == nil {
		op = OpRemove
	}
	return s.mutate(ctx, segs, op, func(tree any) any {
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
	return s.mutate(ctx, segs, OpUpdate, func(tree any) any {
		return realtime.Merge(tree, segs[1:], plain)
	})
}

func (s *Store) Remove(ctx context.Context, path string) error {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.ErrInvalidPath
	}
	return s.mutate(ctx, segs, OpRemove, func(tree any) any {
		return realtime.Assign(tree, segs[1:], nil)
	})
}

func (s *Store) mutate(ctx context.Context, segs []string, op string, apply func(tree any) any) error {
	path := realtime.Join(segs...)
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tree, err := readTree(ctx, tx, segs, true)
	if err != nil {
		return fmt.Errorf("postgres read %s: %w", path, err)
	}
	next := apply(tree)
	children, _ := next.(map[string]any)
	if next != nil && children == nil {
		return ErrNotObject
	}

	if len(segs) == 1 {
		if _, err := tx.Exec(ctx, `DELETE FROM realtime_nodes WHERE collection=$1`, segs[0]); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for k, v := range children {
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}
			batch.Queue(`INSERT INTO realtime_nodes (collection, key, value, updated_at) VALUES ($1,$2,$3,now())`, segs[0], k, raw)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	} else if child, ok := children[segs[1]]; ok {
		raw, err := json.Marshal(child)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO realtime_nodes (collection, key, value, updated_at) VALUES ($1,$2,$3,now())
			ON CONFLICT (collection, key) DO UPDATE SET value=$3, updated_at=now()`, segs[0], segs[1], raw)
		if err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `DELETE FROM realtime_nodes WHERE collection=$1 AND key=$2`, segs[0], segs[1]); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(Change{
		Path:  path,
		Op:    op,
		Value: realtime.Lookup(next, segs[1:]),
		At:    time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	headers := map[string]string{"source": "storefront"}
	_, err = tx.Exec(ctx, `INSERT INTO outbox (collection, path, op, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		segs[0], path, op, payload, headers, tracing.Traceparent(ctx))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, segs[0]); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func readTree(ctx context.Context, q querier, segs []string, lock bool) (any, error) {
	sql := `SELECT key, value FROM realtime_nodes WHERE collection=$1`
	args := []any{segs[0]}
	if len(segs) > 1 {
		sql += ` AND key=$2`
		args = append(args, segs[1])
	}
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tree := map[string]any{}
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", segs[0], key, err)
		}
		tree[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tree) == 0 {
		return nil, nil
	}
	return tree, nil
}

func (s *Store) Get(ctx context.Context, path string) (realtime.Snapshot, error) {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return realtime.Snapshot{}, realtime.ErrInvalidPath
	}
	tree, err := readTree(ctx, s.pool, segs, false)
	if err != nil {
		return realtime.Snapshot{}, fmt.Errorf("postgres read %s: %w", path, err)
	}
	return realtime.Snapshot{
		Path:  realtime.Join(segs...),
		Value: realtime.Lookup(tree, segs[1:]),
	}, nil
}

// Listen holds a dedicated pooled connection in LISTEN mode. When the
// connection drops the error is reported and the listener reconnects.
func (s *Store) Listen(ctx context.Context, path string, onValue func(realtime.Snapshot), onError func(error)) (realtime.Unsubscribe, error) {
	segs := realtime.Split(path)
	if len(segs) == 0 {
		return nil, realtime.ErrInvalidPath
	}
	conn, err := s.listenConn(ctx)
	if err != nil {
		return nil, err
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
		defer func() {
			if conn != nil {
				_, _ = conn.Exec(context.Background(), "UNLISTEN *")
				conn.Release()
			}
		}()
		refresh()
		for {
			n, err := conn.Conn().WaitForNotification(lctx)
			if lctx.Err() != nil {
				return
			}
			if err != nil {
				l.Fail(fmt.Errorf("postgres listen %s: %w", l.Path, err))
				conn.Release()
				conn = nil
				for conn == nil {
					select {
					case <-lctx.Done():
						return
					case <-time.After(s.retry):
					}
					conn, err = s.listenConn(lctx)
					if err != nil && lctx.Err() == nil {
						l.Fail(err)
					}
				}
				refresh()
				continue
			}
			if n.Payload == segs[0] {
				refresh()
			}
		}
	}()
	s.log.Debug("postgres listener registered", "path", l.Path)

	return func() {
		cancel()
		l.Close()
	}, nil
}

func (s *Store) listenConn(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("postgres listen: %w", err)
	}
	return conn, nil
}
