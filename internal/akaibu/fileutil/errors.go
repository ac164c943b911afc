package fileutil

import "errors"

var (
	// ErrCreateDirectory は出力先ディレクトリの作成に失敗した場合のエラー
	ErrCreateDirectory = errors.New("出力先ディレクトリの作成に失敗しました")

	// ErrWriteContent は内容の書き込みに失敗した場合のエラー
	ErrWriteContent = errors.New("内容の書き込みに失敗しました")

	// ErrUnsafePath は出力先ディレクトリの外を指すパスの場合のエラー
	ErrUnsafePath = errors.New("出力先ディレクトリの外を指すパスです")

	// ErrEncodeImage は画像の書き出しに失敗した場合のエラー
	ErrEncodeImage = errors.New("画像の書き出しに失敗しました")

	// ErrOutputCollision は出力先がほかのエントリと重なる場合のエラー
	ErrOutputCollision = errors.New("出力先がほかのエントリと重なっています")
)
