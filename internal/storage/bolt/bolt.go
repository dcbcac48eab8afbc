// Package bolt implements the hierarchical document store on bbolt.
// Inner nodes are nested buckets, leaves are JSON-encoded values.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"factory-dashboard/internal/events"
	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/tree"
)

const rootBucket = "root"

type Store struct {
	db       *bbolt.DB
	hub      *events.Hub
	notifier events.Notifier
	now      func() time.Time
}

// Open opens (or creates) the store file. notifier may be nil.
func Open(filePath string, notifier events.Notifier) (*Store, error) {
	const op = "storage.bbolt.Open"

	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, fmt.Errorf("%s: пустой путь к файлу хранилища", op)
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := bbolt.Open(filePath, 0o600, &bbolt.Options{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: create root bucket: %w", op, err)
	}

	hub := events.NewHub()
	var n events.Notifier = hub
	if notifier != nil {
		n = events.Multi{hub, notifier}
	}

	return &Store{db: db, hub: hub, notifier: n, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the decoded subtree at path: map[string]any for inner nodes,
// the decoded JSON value for leaves. Missing paths return storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, path tree.Path) (any, error) {
	const op = "storage.bolt.Get"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out any
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if len(path) == 0 {
			v, err := readBucket(root)
			out = v
			return err
		}

		parent := lookupChildBucket(root, path.Parent())
		if parent == nil {
			return storage.ErrNotFound
		}
		v, err := readNode(parent, []byte(path.Last()))
		out = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: path=%s: %w", op, path, err)
	}
	return out, nil
}

// GetInto decodes the subtree at path into dst.
func (s *Store) GetInto(ctx context.Context, path tree.Path, dst any) error {
	const op = "storage.bolt.GetInto"

	v, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := tree.Decode(v, dst); err != nil {
		return fmt.Errorf("%s: path=%s: %w", op, path, err)
	}
	return nil
}

// Set replaces the whole subtree at path. A nil value or an empty map removes it.
func (s *Store) Set(ctx context.Context, path tree.Path, value any) error {
	return s.Update(ctx, map[string]any{path.String(): value})
}

// Update writes several paths in one transaction: either all are stored or none.
func (s *Store) Update(ctx context.Context, values map[string]any) error {
	const op = "storage.bolt.Update"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(values) == 0 {
		return nil
	}

	keys := tree.SortedKeys(values)
	paths := make([]tree.Path, 0, len(keys))
	normalized := make([]any, 0, len(keys))
	for _, k := range keys {
		p := tree.Parse(k)
		if !p.Valid() {
			return fmt.Errorf("%s: %q: %w", op, k, storage.ErrInvalidPath)
		}
		v, err := normalize(values[k])
		if err != nil {
			return fmt.Errorf("%s: encode %s: %w", op, k, err)
		}
		paths = append(paths, p)
		normalized = append(normalized, v)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		for i, p := range paths {
			if err := writePath(root, p, normalized[i]); err != nil {
				return fmt.Errorf("path=%s: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	at := s.now()
	for _, p := range paths {
		s.notifier.Notify(ctx, events.Change{Path: p, At: at})
	}
	return nil
}

// Remove deletes the node at path. Removing a missing path is not an error.
func (s *Store) Remove(ctx context.Context, path tree.Path) error {
	return s.Set(ctx, path, nil)
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	return s.hub.Len()
}

// Subscribe calls fn with the current subtree at path and again after every
// committed change that overlaps it. A missing node is delivered as nil, nil.
func (s *Store) Subscribe(ctx context.Context, path tree.Path, fn func(any, error)) func() {
	deliver := func() {
		v, err := s.Get(ctx, path)
		if errors.Is(err, storage.ErrNotFound) {
			v, err = nil, nil
		}
		fn(v, err)
	}

	cancel := s.hub.Subscribe(path, func(events.Change) { deliver() })
	deliver()
	return cancel
}

func lookupChildBucket(parent *bbolt.Bucket, path []string) *bbolt.Bucket {
	if len(path) == 0 || parent == nil {
		return parent
	}
	return lookupChildBucket(parent.Bucket([]byte(path[0])), path[1:])
}

func readNode(parent *bbolt.Bucket, key []byte) (any, error) {
	if b := parent.Bucket(key); b != nil {
		return readBucket(b)
	}
	raw := parent.Get(key)
	if raw == nil {
		return nil, storage.ErrNotFound
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode leaf %s: %w", key, err)
	}
	return v, nil
}

func readBucket(b *bbolt.Bucket) (map[string]any, error) {
	out := make(map[string]any)
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if v == nil {
			child, err := readBucket(b.Bucket(k))
			if err != nil {
				return nil, err
			}
			out[string(k)] = child
			continue
		}
		var leaf any
		if err := json.Unmarshal(v, &leaf); err != nil {
			return nil, fmt.Errorf("decode leaf %s: %w", k, err)
		}
		out[string(k)] = leaf
	}
	return out, nil
}

func writePath(root *bbolt.Bucket, path tree.Path, value any) error {
	if value == nil {
		return removePath(root, path)
	}

	parent := root
	for _, seg := range path.Parent() {
		key := []byte(seg)
		child := parent.Bucket(key)
		if child == nil {
			// лист на месте промежуточного узла заменяется веткой
			if parent.Get(key) != nil {
				if err := parent.Delete(key); err != nil {
					return err
				}
			}
			var err error
			child, err = parent.CreateBucket(key)
			if err != nil {
				return err
			}
		}
		parent = child
	}

	key := []byte(path.Last())
	if err := deleteNode(parent, key); err != nil {
		return err
	}
	return writeValue(parent, key, value)
}

func writeValue(parent *bbolt.Bucket, key []byte, value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return parent.Put(key, raw)
	}

	b, err := parent.CreateBucket(key)
	if err != nil {
		return err
	}
	for _, k := range tree.SortedKeys(m) {
		child := tree.SanitizeKey(k)
		if child == "" || m[k] == nil {
			continue
		}
		if err := writeValue(b, []byte(child), m[k]); err != nil {
			return err
		}
	}
	return nil
}

func removePath(root *bbolt.Bucket, path tree.Path) error {
	chain := []*bbolt.Bucket{root}
	for _, seg := range path.Parent() {
		next := chain[len(chain)-1].Bucket([]byte(seg))
		if next == nil {
			return nil
		}
		chain = append(chain, next)
	}

	if err := deleteNode(chain[len(chain)-1], []byte(path.Last())); err != nil {
		return err
	}

	// пустые ветки удаляются снизу вверх, корень остаётся
	for i := len(chain) - 1; i > 0; i-- {
		if !isEmpty(chain[i]) {
			break
		}
		if err := chain[i-1].DeleteBucket([]byte(path[i-1])); err != nil {
			return err
		}
	}
	return nil
}

func deleteNode(parent *bbolt.Bucket, key []byte) error {
	if parent.Bucket(key) != nil {
		return parent.DeleteBucket(key)
	}
	if parent.Get(key) != nil {
		return parent.Delete(key)
	}
	return nil
}

func isEmpty(b *bbolt.Bucket) bool {
	k, _ := b.Cursor().First()
	return k == nil
}

// normalize приводит значение к дереву из map[string]any и JSON-листьев.
// Пустые объекты считаются удалением.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return prune(v), nil
}

func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		child = prune(child)
		if child == nil {
			delete(m, k)
			continue
		}
		m[k] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
