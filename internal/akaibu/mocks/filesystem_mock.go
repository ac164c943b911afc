// Package mocks はテスト用のモック実装を提供します
package mocks

import (
	"errors"
	"sync"
)

// MockFileSystem はテスト用のファイルシステムモック
type MockFileSystem struct {
	mu sync.Mutex

	Files map[string][]byte
	Dirs  map[string]bool
	// Error が設定されている場合は全ての操作が失敗します
	Error error
	// WriteErrors はパスごとの書き込みエラーです
	WriteErrors map[string]error
}

// NewMockFileSystem は新しいMockFileSystemを作成します
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:       make(map[string][]byte),
		Dirs:        make(map[string]bool),
		WriteErrors: make(map[string]error),
	}
}

// FileExists はファイルが存在するか確認します
func (fs *MockFileSystem) FileExists(filename string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, exists := fs.Files[filename]
	return exists
}

// ReadHeader はファイルの先頭から最大 n バイトを返します
func (fs *MockFileSystem) ReadHeader(filename string, n int) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Error != nil {
		return nil, fs.Error
	}
	data, exists := fs.Files[filename]
	if !exists {
		return nil, errors.New("file not found")
	}
	return data[:min(n, len(data))], nil
}

// WriteFile はファイルを書き込みます
func (fs *MockFileSystem) WriteFile(filename string, data []byte, perm uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Error != nil {
		return fs.Error
	}
	if err := fs.WriteErrors[filename]; err != nil {
		return err
	}
	fs.Files[filename] = append([]byte(nil), data...)
	return nil
}

// MkdirAll はディレクトリを作成します
func (fs *MockFileSystem) MkdirAll(path string, perm uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Error != nil {
		return fs.Error
	}
	fs.Dirs[path] = true
	return nil
}

// Get は書き込まれたファイルの内容を返します
func (fs *MockFileSystem) Get(filename string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.Files[filename]
	return data, ok
}
