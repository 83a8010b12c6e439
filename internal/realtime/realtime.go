// Package realtime defines the hierarchical key-value store the storefront
// syncs against. Values are JSON-shaped trees addressed by slash separated
// paths such as "orders" or "users/{uid}/roles".
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidPath = errors.New("realtime: invalid path")
	ErrClosed      = errors.New("realtime: store closed")
)

// Store is implemented by every backend (memory, redis, postgres).
type Store interface {
	// Push writes value under a freshly generated child key of path and
	// returns that key.
	Push(ctx context.Context, path string, value any) (string, error)
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the node at path. A nil field value removes
	// the child.
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	Get(ctx context.Context, path string) (Snapshot, error)
	// Listen registers a persistent listener. The current value is delivered
	// asynchronously after registration and again after every change under
	// path. Delivery errors do not cancel the listener.
	Listen(ctx context.Context, path string, onValue func(Snapshot), onError func(error)) (Unsubscribe, error)
}

type Unsubscribe func()

// Snapshot is the value found under Path at read time. Value is nil when
// nothing is stored there.
type Snapshot struct {
	Path  string
	Value any
}

func (s Snapshot) Exists() bool { return s.Value != nil }

// Key is the last segment of the snapshot path.
func (s Snapshot) Key() string {
	segs := Split(s.Path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Children returns the child nodes when the value is an object.
func (s Snapshot) Children() map[string]any {
	m, _ := s.Value.(map[string]any)
	return m
}

func (s Snapshot) Decode(v any) error {
	raw, err := json.Marshal(s.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// NewKey returns a push key. UUIDv7 strings sort by creation time, which
// keeps collections in insertion order when ordered by key.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Split cleans a path into its segments.
func Split(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func Join(segs ...string) string {
	return strings.Join(segs, "/")
}

// Plain converts any Go value into its JSON tree form (maps, slices,
// float64, string, bool, nil) so backends only ever store plain data.
func Plain(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone deep copies a plain tree.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = Clone(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = Clone(c)
		}
		return out
	default:
		return v
	}
}

// Lookup walks segs from root and returns the node found, or nil.
func Lookup(root any, segs []string) any {
	cur := root
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[s]
	}
	return cur
}

// Assign stores value at segs under root and returns the new root. Missing
// or non-object intermediate nodes are replaced by objects. A nil value
// removes the node and prunes empty parents.
func Assign(root any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	m, ok := root.(map[string]any)
	if !ok {
		if value == nil {
			return root
		}
		m = map[string]any{}
	}
	child := Assign(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
		if len(m) == 0 {
			return nil
		}
		return m
	}
	m[segs[0]] = child
	return m
}

// Merge applies Update semantics to the node at segs.
func Merge(root any, segs []string, fields map[string]any) any {
	for k, v := range fields {
		root = Assign(root, append(append([]string{}, segs...), Split(k)...), v)
	}
	return root
}
