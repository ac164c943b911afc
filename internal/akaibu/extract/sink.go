package extract

import (
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/shiroemons/go-akaibu/internal/akaibu/fileutil"
	"github.com/shiroemons/go-akaibu/internal/akaibu/interfaces"
	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// FileSink はエントリをそのまま root の下に書き出します
type FileSink struct {
	fs   interfaces.FileSystem
	root string
}

// NewFileSink は新しいFileSinkを作成します
func NewFileSink(fs interfaces.FileSystem, root string) *FileSink {
	return &FileSink{fs: fs, root: root}
}

// Write はエントリを書き出します
func (s *FileSink) Write(entry archive.FileEntry, data []byte) error {
	p, err := fileutil.SafeJoin(s.root, entry.FullPath)
	if err != nil {
		return err
	}
	return fileutil.WriteFile(s.fs, p, data)
}

// Converter はエントリを画像やテキストに変換します。scheme.Scheme が実装します。
type Converter interface {
	ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error)
}

// ConvertSink は変換できるエントリを PNG / テキストにして書き出し、それ以外はそのまま書き出します。
//
// 変換後の名前がほかのエントリの名前や変換後の名前と重なる場合は、
// 元の拡張子を残した名前 (a.ks なら a.ks.txt) で書き出します。
type ConvertSink struct {
	raw    *FileSink
	conv   Converter
	logger interfaces.Logger

	mu      sync.Mutex
	claimed map[string]string // 出力パス -> エントリのパス
}

// NewConvertSink は新しいConvertSinkを作成します。
// entries のパスはそれぞれのエントリ自身の出力先として予約されます。
func NewConvertSink(fs interfaces.FileSystem, root string, conv Converter, logger interfaces.Logger, entries []archive.FileEntry) *ConvertSink {
	claimed := make(map[string]string, len(entries))
	for _, e := range entries {
		claimed[e.FullPath] = e.FullPath
	}
	return &ConvertSink{raw: NewFileSink(fs, root), conv: conv, logger: logger, claimed: claimed}
}

// Write はエントリを変換して書き出します。
// 未対応の形式やデコードに失敗したものは警告を出してそのまま書き出します。
func (s *ConvertSink) Write(entry archive.FileEntry, data []byte) error {
	res, err := s.conv.ConvertFromBytes(entry.FullPath, data)
	if err != nil {
		if !errors.Is(err, archive.ErrUnimplemented) && !errors.Is(err, archive.ErrDecodeFailure) {
			return err
		}
		s.warnf("変換できないため元のまま書き出します: %s (%v)", entry.FullPath, err)
		return s.writeRaw(entry, data)
	}
	if res.Type == resource.TypeOther {
		return s.writeRaw(entry, data)
	}

	out, err := fileutil.EncodeResource(res)
	if err != nil {
		return err
	}

	name := fileutil.ConvertedName(entry.FullPath, res.Type)
	if !s.claim(name, entry.FullPath) {
		alt := entry.FullPath + path.Ext(name)
		if !s.claim(alt, entry.FullPath) {
			return fmt.Errorf("%w: %s -> %s", fileutil.ErrOutputCollision, entry.FullPath, name)
		}
		s.warnf("%s はほかのエントリと重なるため %s に書き出します", name, alt)
		name = alt
	}

	converted := entry
	converted.FullPath = name
	converted.FileName = path.Base(name)
	return s.raw.Write(converted, out)
}

func (s *ConvertSink) writeRaw(entry archive.FileEntry, data []byte) error {
	if !s.claim(entry.FullPath, entry.FullPath) {
		return fmt.Errorf("%w: %s", fileutil.ErrOutputCollision, entry.FullPath)
	}
	return s.raw.Write(entry, data)
}

// claim は出力パス p を owner のものとして確保します。ほかのエントリが確保済みなら false です。
func (s *ConvertSink) claim(p, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.claimed[p]; ok && cur != owner {
		return false
	}
	s.claimed[p] = owner
	return true
}

func (s *ConvertSink) warnf(format string, a ...any) {
	if s.logger != nil {
		s.logger.Warnf(format, a...)
	}
}
