package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhangyunhao116/skipmap"
)

// Memory keeps objects in an ordered concurrent map.
type Memory struct {
	objects *skipmap.FuncMap[string, []byte]
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		objects: skipmap.NewFunc[string, []byte](func(a, b string) bool {
			return a < b
		}),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects.Load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.objects.Store(key, append([]byte(nil), data...))
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	m.objects.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.objects.Delete(key)
	return nil
}
