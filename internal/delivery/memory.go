package delivery

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time check to verify implements interface.
var _ Store = (*Memory)(nil)

// Memory keeps delivered files in memory.
type Memory struct {
	lock  sync.Mutex
	files map[string]File
}

type File struct {
	MimeType string
	Data     []byte
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string]File)}
}

func (m *Memory) Backend() Backend { return BackendMemory }

func (m *Memory) Deliver(_ context.Context, name, mimeType string, data []byte) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.files[name] = File{MimeType: mimeType, Data: append([]byte(nil), data...)}
	return "memory://" + name, nil
}

func (m *Memory) Read(_ context.Context, name string) ([]byte, error) {
	f, ok := m.Get(name)
	if !ok {
		return nil, fmt.Errorf("memory delivery: %s not found", name)
	}
	return f.Data, nil
}

func (m *Memory) Get(name string) (File, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	f, ok := m.files[name]
	return f, ok
}
