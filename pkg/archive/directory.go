package archive

import (
	"maps"
	"slices"
	"strings"
)

// Directory はアーカイブ内のディレクトリツリーのノードです
type Directory struct {
	Directories map[string]*Directory
	Files       []FileEntry
}

// NewDirectory は空のディレクトリを作成します
func NewDirectory() *Directory {
	return &Directory{Directories: make(map[string]*Directory)}
}

// Insert は entry.FullPath に従って中間ディレクトリを作りながらエントリを追加します
func (d *Directory) Insert(entry FileEntry) {
	cur := d
	segs := strings.Split(entry.FullPath, "/")
	for _, name := range segs[:len(segs)-1] {
		next, ok := cur.Directories[name]
		if !ok {
			next = NewDirectory()
			cur.Directories[name] = next
		}
		cur = next
	}
	cur.Files = append(cur.Files, entry)
}

// Find は '/' 区切りの相対パスでサブディレクトリを探します
func (d *Directory) Find(p string) (*Directory, bool) {
	cur := d
	for _, name := range strings.Split(p, "/") {
		if name == "" {
			continue
		}
		next, ok := cur.Directories[name]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SortedNames はサブディレクトリ名を昇順で返します
func (d *Directory) SortedNames() []string {
	return slices.Sorted(maps.Keys(d.Directories))
}

// AllFiles は深さ優先でツリー内の全ファイルを返します。
// 各ノードでは自身のファイルを追加順に、続いてサブディレクトリを名前順に辿ります。
func (d *Directory) AllFiles() []FileEntry {
	var files []FileEntry
	d.walk(func(e FileEntry) { files = append(files, e) })
	return files
}

// Count はツリー内のファイル数を返します
func (d *Directory) Count() int {
	n := len(d.Files)
	for _, sub := range d.Directories {
		n += sub.Count()
	}
	return n
}

func (d *Directory) walk(fn func(FileEntry)) {
	for _, f := range d.Files {
		fn(f)
	}
	for _, name := range d.SortedNames() {
		d.Directories[name].walk(fn)
	}
}
