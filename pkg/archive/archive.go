// Package archive はアーカイブの共通データモデルを提供します。
//
// アーカイブを開くとインデックスだけを読み込み、ディレクトリツリーと
// フラットなファイル一覧を構築します。データの復号・展開は Extract を
// 呼んだときに行われます。Extract は読み取り専用のマップを参照するだけなので、
// 同じ Archive に対して複数の goroutine から同時に呼び出せます。
package archive

import (
	"fmt"
)

// Archive は開かれたコンテナです
type Archive interface {
	// Extract はエントリの展開後のバイト列を返します
	Extract(entry FileEntry) ([]byte, error)

	// Lookup はフルパスからエントリを探します
	Lookup(fullPath string) (FileEntry, bool)

	// Files は深さ優先順の全エントリを返します
	Files() []FileEntry

	// NavigableDir はアーカイブごとに1つのカーソルを返します。
	// 呼び出しをまたいで同じカーソルが返り、移動した位置は保持されます。
	// カーソルは goroutine セーフではありません。
	NavigableDir() *NavigableDirectory

	// Close はアーカイブを閉じます
	Close() error
}

// Base は各スキームのアーカイブが埋め込む共通実装です
type Base struct {
	src    *Source
	root   *Directory
	cursor *NavigableDirectory
	files  []FileEntry
	index  map[string]int
}

// NewBase はエントリからツリーを構築します。同じパスのエントリが複数ある場合はエラーです。
func NewBase(src *Source, entries []FileEntry) (*Base, error) {
	root := NewDirectory()
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.FullPath]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrMalformedIndex, e.FullPath)
		}
		seen[e.FullPath] = struct{}{}
		root.Insert(e)
	}

	files := root.AllFiles()
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f.FullPath] = i
	}

	return &Base{src: src, root: root, cursor: NewNavigableDirectory(root), files: files, index: index}, nil
}

// Source は元ファイルを返します
func (b *Base) Source() *Source {
	return b.src
}

// Files は全エントリのコピーを返します
func (b *Base) Files() []FileEntry {
	return append([]FileEntry(nil), b.files...)
}

// NavigableDir はアーカイブのカーソルを返します
func (b *Base) NavigableDir() *NavigableDirectory {
	return b.cursor
}

// Lookup はフルパスからエントリを探します
func (b *Base) Lookup(fullPath string) (FileEntry, bool) {
	p, err := CleanPath(fullPath)
	if err != nil {
		return FileEntry{}, false
	}
	i, ok := b.index[p]
	if !ok {
		return FileEntry{}, false
	}
	return b.files[i], true
}

// Resolve はアーカイブが保持するエントリを返します。
// 呼び出し側が渡した位置情報は信用せず、パスで引き直します。
func (b *Base) Resolve(entry FileEntry) (FileEntry, error) {
	e, ok := b.Lookup(entry.FullPath)
	if !ok {
		return FileEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, entry.FullPath)
	}
	return e, nil
}

// Close は元ファイルを閉じます
func (b *Base) Close() error {
	if b.src == nil {
		return nil
	}
	return b.src.Close()
}
