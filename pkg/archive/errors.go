package archive

import (
	"errors"
	"fmt"
	"io/fs"
)

// エラー種別。呼び出し側は errors.Is で判定します。
var (
	// ErrUnrecognizedFormat はどのシグネチャにも一致しない場合のエラー
	ErrUnrecognizedFormat = errors.New("unrecognized format")

	// ErrMalformedIndex はインデックスが壊れている、または範囲外を指している場合のエラー
	ErrMalformedIndex = errors.New("malformed index")

	// ErrDecodeFailure は復号・展開・画像デコードに失敗した場合のエラー
	ErrDecodeFailure = errors.New("decode failure")

	// ErrEntryNotFound はエントリがアーカイブに存在しない場合のエラー
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnimplemented は識別はできたが未対応の形式の場合のエラー
	ErrUnimplemented = errors.New("unimplemented")

	// ErrDirectoryNotFound はカーソルの移動先ディレクトリが存在しない場合のエラー
	ErrDirectoryNotFound = errors.New("directory not found")
)

// ArchiveError はアーカイブ操作のエラー
type ArchiveError struct {
	Op   string // 実行していた操作
	Path string // ファイルパス
	Err  error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ArchiveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// NewArchiveError は新しいArchiveErrorを作成します
func NewArchiveError(op, path string, err error) *ArchiveError {
	return &ArchiveError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// UnrecognizedFormatError は判別できなかったファイルのパスと先頭バイトを保持します
type UnrecognizedFormatError struct {
	Path  string
	Magic []byte
}

// Error はエラーメッセージを返します
func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("%v: %s (magic % x)", ErrUnrecognizedFormat, e.Path, e.Magic)
}

// Unwrap は ErrUnrecognizedFormat を返します
func (e *UnrecognizedFormatError) Unwrap() error {
	return ErrUnrecognizedFormat
}

// NewUnrecognizedFormatError は magic をコピーして UnrecognizedFormatError を作成します
func NewUnrecognizedFormatError(path string, magic []byte) *UnrecognizedFormatError {
	return &UnrecognizedFormatError{
		Path:  path,
		Magic: append([]byte(nil), magic...),
	}
}

// KindOf はエラーの種別名を返します。種別が判別できない場合は空文字列です。
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnrecognizedFormat):
		return "UnrecognizedFormat"
	case errors.Is(err, ErrMalformedIndex):
		return "MalformedIndex"
	case errors.Is(err, ErrDecodeFailure):
		return "DecodeFailure"
	case errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrDirectoryNotFound):
		return "EntryNotFound"
	case errors.Is(err, ErrUnimplemented):
		return "Unimplemented"
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return "IO"
	}
	return ""
}
