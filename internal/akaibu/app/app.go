// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alecthomas/units"

	"github.com/shiroemons/go-akaibu/internal/akaibu/browse"
	"github.com/shiroemons/go-akaibu/internal/akaibu/config"
	"github.com/shiroemons/go-akaibu/internal/akaibu/extract"
	"github.com/shiroemons/go-akaibu/internal/akaibu/fileutil"
	"github.com/shiroemons/go-akaibu/internal/akaibu/interfaces"
	"github.com/shiroemons/go-akaibu/internal/akaibu/progress"
	"github.com/shiroemons/go-akaibu/internal/akaibu/prompt"
	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/magic"
	"github.com/shiroemons/go-akaibu/pkg/resource"
	"github.com/shiroemons/go-akaibu/pkg/scheme"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	config   *config.Config
	logger   *config.DebugLogger
	fs       interfaces.FileSystem
	selector interfaces.Selector
	stdin    io.Reader
	stdout   io.Writer
	bar      *progress.Bar
}

// Options はAppの設定オプション
type Options struct {
	FileSystem interfaces.FileSystem
	Selector   interfaces.Selector
	Logger     *config.DebugLogger
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	// Interactive が true の場合は Stdin が端末でなくても番号を入力させます
	Interactive bool
}

// New は新しいAppを作成します
func New(cfg *config.Config) *App {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions は新しいAppをオプション付きで作成します
func NewWithOptions(cfg *config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = config.NewDebugLogger(cfg.DebugMode)
	}

	fsys := opts.FileSystem
	if fsys == nil {
		fsys = fileutil.NewOSFileSystem()
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	rawIn := opts.Stdin
	if rawIn == nil {
		rawIn = os.Stdin
	}
	// スキームの選択と閲覧シェルで同じバッファを使う
	stdin := bufio.NewReader(rawIn)

	selector := opts.Selector
	if selector == nil {
		selector = prompt.New(cfg.SchemeIndex, stdin, opts.Interactive || prompt.IsTerminal(rawIn), stdout)
	}

	return &App{
		config:   cfg,
		logger:   logger,
		fs:       fsys,
		selector: selector,
		stdin:    stdin,
		stdout:   stdout,
		bar:      progress.NewBar(stderr, !cfg.NoProgress),
	}
}

// Run はアプリケーションを実行します。
// 入力ファイルごとのエラーはまとめて返し、残りのファイルの処理は続けます。
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Sync() //nolint:errcheck

	if a.config.Command == config.CommandSchemes {
		a.printSchemes()
		return nil
	}
	if len(a.config.Inputs) == 0 {
		return ErrNoInputs
	}

	var errs []error
	for _, path := range a.config.Inputs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := a.processFile(ctx, path); err != nil {
			a.logger.Printf("%s の処理に失敗しました: %v\n", path, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// processFile は1つの入力ファイルを判別して開き、コマンドを実行します
func (a *App) processFile(ctx context.Context, path string) error {
	if !a.fs.FileExists(path) {
		return archive.NewArchiveError("open", path, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist})
	}
	header, err := a.fs.ReadHeader(path, magic.HeaderSize)
	if err != nil {
		return archive.NewArchiveError("read", path, fmt.Errorf("%w: %w", ErrReadHeader, err))
	}

	family := magic.Parse(header)
	a.logger.Debugw("形式を判別しました", "path", path, "family", family.String(), "header", fmt.Sprintf("% x", header))

	sc, err := a.chooseScheme(path, header, family)
	if err != nil {
		return err
	}
	a.logger.Debugw("スキームを選択しました", "path", path, "scheme", sc.Name())

	arc, err := sc.Extract(path)
	if err != nil {
		return err
	}
	defer arc.Close() //nolint:errcheck

	switch a.config.Command {
	case config.CommandList:
		a.list(path, arc)
		return nil
	case config.CommandBrowse:
		return a.browse(ctx, sc, arc)
	}
	return a.extract(ctx, path, sc, arc)
}

// chooseScheme は形式とオプションからスキームを決めます。
//
// 判別できなかった場合、--convert 指定かつリソースファイルならリソース用のスキーム、
// --manual 指定なら全スキームから選択、それ以外は UnrecognizedFormatError です。
// タイトルに依存する形式は selector で選びます。
func (a *App) chooseScheme(path string, header []byte, family magic.Archive) (scheme.Scheme, error) {
	if family == magic.NotRecognized {
		switch {
		case a.config.Convert && isResource(path, header):
			return magic.ResourceSchemes()[0], nil
		case a.config.Manual:
			return a.selectScheme(path, magic.AllSchemes())
		}
		return nil, archive.NewUnrecognizedFormatError(path, header)
	}

	schemes := family.Schemes()
	if len(schemes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySchemes, family)
	}
	if family.IsUniversal() {
		return schemes[0], nil
	}
	return a.selectScheme(path, schemes)
}

func (a *App) selectScheme(path string, schemes []scheme.Scheme) (scheme.Scheme, error) {
	names := make([]string, len(schemes))
	for i, s := range schemes {
		names[i] = s.Name()
	}
	i, err := a.selector.Select(fmt.Sprintf("%s\nタイトルを番号で選択してください:", path), names)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(schemes) {
		return nil, fmt.Errorf("%w: %d", prompt.ErrInvalidSelection, i)
	}
	return schemes[i], nil
}

// isResource はアーカイブ以外の単体で変換できるファイルか判定します
func isResource(path string, header []byte) bool {
	return resource.ParseMagic(header) != resource.Unrecognized ||
		resource.ParsePreview(header) != resource.PreviewNone ||
		resource.IsTextName(path)
}

func (a *App) sink(sc scheme.Scheme, arc archive.Archive) extract.Sink {
	if a.config.Convert {
		return extract.NewConvertSink(a.fs, a.config.OutputDir, sc, a.logger, arc.Files())
	}
	return extract.NewFileSink(a.fs, a.config.OutputDir)
}

func (a *App) policy() extract.Policy {
	if a.config.KeepGoing {
		return extract.BestEffort
	}
	return extract.FailFast
}

// extract は全エントリを出力先に書き出します
func (a *App) extract(ctx context.Context, path string, sc scheme.Scheme, arc archive.Archive) error {
	a.bar.Start(filepath.Base(path), len(arc.Files()))
	summary, err := extract.Run(ctx, arc, a.sink(sc, arc), extract.Options{
		Workers:    a.config.Workers,
		Policy:     a.policy(),
		OnProgress: a.bar.Report,
	})
	a.bar.Finish(summary)
	if err != nil {
		return archive.NewArchiveError("extract", path, err)
	}
	return nil
}

// list はアーカイブ内のファイルを一覧表示します
func (a *App) list(path string, arc archive.Archive) {
	files := arc.Files()
	fmt.Fprintf(a.stdout, "%s:\n", path)
	fmt.Fprintf(a.stdout, "%-48s %10s %10s\n", "ファイル名", "サイズ", "格納サイズ")
	var total uint64
	for _, f := range files {
		fmt.Fprintf(a.stdout, "%-48s %10v %10v\n", f.FullPath, units.Base2Bytes(f.FileSize), units.Base2Bytes(f.PackedSize))
		total += f.FileSize
	}
	fmt.Fprintf(a.stdout, "%d 個のファイル (%v)\n", len(files), units.Base2Bytes(total))
}

func (a *App) browse(ctx context.Context, sc scheme.Scheme, arc archive.Archive) error {
	shell := browse.New(arc, browse.Options{
		FileSystem: a.fs,
		OutputDir:  a.config.OutputDir,
		Converter:  sc,
		Convert:    a.config.Convert,
		Extract:    extract.Options{Workers: a.config.Workers, Policy: a.policy()},
		Logger:     a.logger,
		Stdin:      a.stdin,
		Stdout:     a.stdout,
	})
	return shell.Run(ctx)
}

// printSchemes は対応している形式とスキームを表示します
func (a *App) printSchemes() {
	for _, f := range magic.Families() {
		kind := "タイトル選択"
		if f.IsUniversal() {
			kind = "汎用"
		}
		fmt.Fprintf(a.stdout, "%s (%s)\n", f, kind)
		for i, s := range f.Schemes() {
			fmt.Fprintf(a.stdout, "  %d: %s\n", i, s.Name())
		}
	}
	fmt.Fprintln(a.stdout, "リソース (--convert)")
	for i, s := range magic.ResourceSchemes() {
		fmt.Fprintf(a.stdout, "  %d: %s\n", i, s.Name())
	}
}
