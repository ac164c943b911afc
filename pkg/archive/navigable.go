package archive

import (
	"fmt"
	"strings"
)

// NavigableDirectory はツリー上のカーソルです。
// 親への参照は持たず、辿ってきたディレクトリをスタックで保持します。
type NavigableDirectory struct {
	root    *Directory
	current *Directory
	parents []*Directory
	names   []string
}

// NewNavigableDirectory は root を指すカーソルを作成します
func NewNavigableDirectory(root *Directory) *NavigableDirectory {
	return &NavigableDirectory{root: root, current: root}
}

// MoveDir は現在のディレクトリの子 name に移動します。
// 存在しない場合はカーソルを変更せずにエラーを返します。
func (n *NavigableDirectory) MoveDir(name string) (*Directory, error) {
	next, ok := n.current.Directories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, n.join(name))
	}
	n.parents = append(n.parents, n.current)
	n.names = append(n.names, name)
	n.current = next
	return next, nil
}

// BackDir は親ディレクトリに戻ります。ルートでは何もしません。
func (n *NavigableDirectory) BackDir() *Directory {
	if !n.HasParent() {
		return n.current
	}
	last := len(n.parents) - 1
	n.current = n.parents[last]
	n.parents = n.parents[:last]
	n.names = n.names[:last]
	return n.current
}

// HasParent はカーソルがルート以外にある場合に true を返します
func (n *NavigableDirectory) HasParent() bool {
	return len(n.parents) > 0
}

// Current は現在のディレクトリを返します
func (n *NavigableDirectory) Current() *Directory {
	return n.current
}

// Root はルートディレクトリを返します
func (n *NavigableDirectory) Root() *Directory {
	return n.root
}

// Path は現在位置を "/" 始まりのパスで返します
func (n *NavigableDirectory) Path() string {
	return "/" + strings.Join(n.names, "/")
}

// Reset はカーソルをルートに戻します
func (n *NavigableDirectory) Reset() {
	n.current = n.root
	n.parents = nil
	n.names = nil
}

func (n *NavigableDirectory) join(name string) string {
	if len(n.names) == 0 {
		return name
	}
	return strings.Join(n.names, "/") + "/" + name
}
