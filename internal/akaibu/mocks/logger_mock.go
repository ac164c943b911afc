package mocks

import (
	"fmt"
	"sync"
)

// MockLogger はテスト用のロガーモック
type MockLogger struct {
	mu       sync.Mutex
	Warnings []string
}

// Warnf は警告を記録します
func (l *MockLogger) Warnf(format string, a ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warnings = append(l.Warnings, fmt.Sprintf(format, a...))
}
