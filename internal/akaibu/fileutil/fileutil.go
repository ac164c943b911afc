// Package fileutil は出力ファイルの書き出しを行います
package fileutil

import (
	"bytes"
	"fmt"
	"image/png"
	"path"
	"path/filepath"
	"strings"

	"github.com/shiroemons/go-akaibu/internal/akaibu/interfaces"
	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// パーミッション
const (
	DirPerm  = 0o750
	FilePerm = 0o600
)

// SafeJoin はアーカイブ内のパス rel を出力先 root の下のパスに変換します。
// ".." を含むなど root の外を指す場合は ErrUnsafePath を返します。
func SafeJoin(root, rel string) (string, error) {
	clean, err := archive.CleanPath(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	local := filepath.FromSlash(clean)
	if filepath.VolumeName(local) != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return filepath.Join(root, local), nil
}

// ConvertedName は変換後のリソースのファイル名を返します
func ConvertedName(name string, t resource.Type) string {
	var ext string
	switch t {
	case resource.TypeImage:
		ext = ".png"
	case resource.TypeText:
		ext = ".txt"
	default:
		return name
	}
	if e := path.Ext(name); strings.EqualFold(e, ext) {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

// EncodeResource は変換済みのリソースをファイルの内容にします。
// 画像は PNG、テキストは UTF-8 です。
func EncodeResource(res resource.Resource) ([]byte, error) {
	switch res.Type {
	case resource.TypeImage:
		var buf bytes.Buffer
		if err := png.Encode(&buf, res.Image); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeImage, err)
		}
		return buf.Bytes(), nil
	case resource.TypeText:
		return []byte(res.Text), nil
	}
	return nil, fmt.Errorf("変換できないリソースです: %s", res.Type)
}

// WriteFile は必要なディレクトリを作成してからファイルを書き込みます
func WriteFile(fs interfaces.FileSystem, p string, data []byte) error {
	if dir := filepath.Dir(p); dir != "." {
		if err := fs.MkdirAll(dir, DirPerm); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCreateDirectory, dir, err)
		}
	}
	if err := fs.WriteFile(p, data, FilePerm); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteContent, p, err)
	}
	return nil
}
