// Package interfaces は akaibu コマンドで使用するインターフェースを定義します
package interfaces

// FileSystem はファイルシステム操作のインターフェース
type FileSystem interface {
	FileExists(filename string) bool
	// ReadHeader はファイルの先頭から最大 n バイトを読みます
	ReadHeader(filename string, n int) ([]byte, error)
	WriteFile(filename string, data []byte, perm uint32) error
	MkdirAll(path string, perm uint32) error
}

// Selector は候補の中から1つを選ばせるインターフェースです
type Selector interface {
	// Select は選ばれた候補のインデックスを返します
	Select(title string, candidates []string) (int, error)
}

// Logger は警告を出力するインターフェース
type Logger interface {
	Warnf(format string, a ...any)
}
