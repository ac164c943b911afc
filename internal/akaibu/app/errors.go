package app

import "errors"

var (
	// ErrReadHeader はファイルの先頭を読めなかった場合のエラー
	ErrReadHeader = errors.New("ファイルの先頭を読み込めませんでした")

	// ErrEmptySchemes は形式に対応するスキームがない場合のエラー
	ErrEmptySchemes = errors.New("スキームの一覧が空です")

	// ErrNoInputs は入力ファイルが指定されていない場合のエラー
	ErrNoInputs = errors.New("入力ファイルが指定されていません")
)
