package mocks

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shiroemons/go-akaibu/pkg/archive"
)

// MockArchive はテスト用のアーカイブモック
type MockArchive struct {
	*archive.Base

	mu       sync.Mutex
	data     map[string][]byte
	errs     map[string]error
	attempts map[string]int
	// Hook は Extract の開始時に呼ばれます
	Hook   func(entry archive.FileEntry)
	Closed bool
}

// NewMockArchive は path → 内容 のマップからアーカイブを作成します。
// errs に含まれるパスの Extract はそのエラーを返します。
func NewMockArchive(data map[string][]byte, errs map[string]error) (*MockArchive, error) {
	var entries []archive.FileEntry
	for p, d := range data {
		e, err := archive.NewFileEntry(p, uint64(len(d)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	for p := range errs {
		if _, ok := data[p]; ok {
			continue
		}
		e, err := archive.NewFileEntry(p, 0)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	// マップの順序に依存しないようにパス順に並べる
	slices.SortFunc(entries, func(a, b archive.FileEntry) int { return strings.Compare(a.FullPath, b.FullPath) })

	base, err := archive.NewBase(archive.NewMemorySource("mock", nil), entries)
	if err != nil {
		return nil, err
	}
	if errs == nil {
		errs = map[string]error{}
	}
	return &MockArchive{
		Base:     base,
		data:     data,
		errs:     errs,
		attempts: make(map[string]int),
	}, nil
}

// Extract はエントリの内容を返します
func (m *MockArchive) Extract(entry archive.FileEntry) ([]byte, error) {
	if m.Hook != nil {
		m.Hook(entry)
	}
	m.mu.Lock()
	m.attempts[entry.FullPath]++
	m.mu.Unlock()

	if err := m.errs[entry.FullPath]; err != nil {
		return nil, err
	}
	d, ok := m.data[entry.FullPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", archive.ErrEntryNotFound, entry.FullPath)
	}
	return append([]byte(nil), d...), nil
}

// Attempts は Extract が呼ばれた回数を返します
func (m *MockArchive) Attempts(fullPath string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[fullPath]
}

// Close はアーカイブを閉じます
func (m *MockArchive) Close() error {
	m.Closed = true
	return nil
}
