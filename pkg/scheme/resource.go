package scheme

import (
	"path/filepath"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// ResourceScheme は単体のリソースファイル (TLG など) を1エントリのアーカイブとして扱います
type ResourceScheme struct{}

// NewResourceScheme はリソース用のスキームを返します
func NewResourceScheme() *ResourceScheme {
	return &ResourceScheme{}
}

// Name は表示名を返します
func (s *ResourceScheme) Name() string {
	return "Resource file"
}

// Extract はファイルを開いて1エントリのアーカイブを作ります
func (s *ResourceScheme) Extract(path string) (archive.Archive, error) {
	src, err := archive.OpenSource(path)
	if err != nil {
		return nil, err
	}
	arc, err := openResource(src, filepath.Base(path))
	if err != nil {
		src.Close() //nolint:errcheck
		return nil, archive.NewArchiveError("open resource", path, err)
	}
	return arc, nil
}

func openResource(src *archive.Source, name string) (archive.Archive, error) {
	e, err := archive.NewFileEntry(name, src.Size())
	if err != nil {
		return nil, err
	}
	base, err := archive.NewBase(src, []archive.FileEntry{e})
	if err != nil {
		return nil, err
	}
	return &plainArchive{Base: base}, nil
}

// ConvertFromBytes はリソース形式、次に汎用画像形式の順で変換を試みます
func (s *ResourceScheme) ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error) {
	res, err := resource.ConvertFromBytes(pathHint, data, nil)
	if err != nil || res.Type != resource.TypeOther {
		return res, err
	}
	return resource.Preview(data)
}
