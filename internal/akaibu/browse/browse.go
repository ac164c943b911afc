// Package browse はアーカイブを対話的に閲覧するシェルを提供します
package browse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/units"
	"github.com/fatih/color"

	"github.com/shiroemons/go-akaibu/internal/akaibu/extract"
	"github.com/shiroemons/go-akaibu/internal/akaibu/interfaces"
	"github.com/shiroemons/go-akaibu/pkg/archive"
)

// ErrUnknownCommand は未知のコマンドが入力された場合のエラー
var ErrUnknownCommand = errors.New("不明なコマンドです (help で一覧を表示)")

// ErrMissingArgument はコマンドの引数が足りない場合のエラー
var ErrMissingArgument = errors.New("引数が必要です")

var (
	dirColor    = color.New(color.FgBlue, color.Bold)
	noticeColor = color.New(color.FgRed)
	promptColor = color.New(color.FgGreen)
)

const helpText = `コマンド:
  ls              現在のディレクトリの内容を表示
  cd <dir>        サブディレクトリに移動 (a/b、/a も可。cd .. で親に戻る)
  pwd             現在のパスを表示
  get <file>      ファイルをそのまま書き出す
  convert <file>  ファイルを画像やテキストに変換して書き出す
  extract-all     全ファイルを書き出す
  help            このヘルプを表示
  quit            終了
`

// Options はシェルの設定です
type Options struct {
	FileSystem interfaces.FileSystem
	OutputDir  string
	Converter  extract.Converter
	// Convert が true の場合 extract-all は変換して書き出します
	Convert bool
	Extract extract.Options
	Logger  interfaces.Logger
	Stdin   io.Reader
	Stdout  io.Writer
}

// Shell はアーカイブのカーソルを操作するシェルです
type Shell struct {
	arc    archive.Archive
	cursor *archive.NavigableDirectory
	opts   Options
	out    io.Writer
}

// New は新しいShellを作成します
func New(arc archive.Archive, opts Options) *Shell {
	return &Shell{arc: arc, cursor: arc.NavigableDir(), opts: opts, out: opts.Stdout}
}

// Run は入力が終わるか quit が入力されるまでコマンドを実行します。
// コマンドのエラーは表示するだけで、シェルは続行します。
// Stdin が *bufio.Reader の場合はそのまま読むので、読み残しはほかの読み手に渡ります。
func (s *Shell) Run(ctx context.Context) error {
	in := bufio.NewReader(s.opts.Stdin)
	for {
		promptColor.Fprintf(s.out, "%s> ", s.cursor.Path()) //nolint:errcheck
		line, readErr := in.ReadString('\n')
		if line == "" && readErr != nil {
			fmt.Fprintln(s.out)
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		quit, err := s.Exec(ctx, strings.TrimRight(line, "\r\n"))
		if err != nil {
			noticeColor.Fprintf(s.out, "エラー: %v\n", err) //nolint:errcheck
		}
		if quit {
			return nil
		}
	}
}

// Exec は1行のコマンドを実行します。quit の場合は true を返します。
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd := fields[0]
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))

	switch cmd {
	case "ls":
		s.list()
	case "cd":
		return false, s.changeDir(arg)
	case "pwd":
		fmt.Fprintln(s.out, s.cursor.Path())
	case "get":
		return false, s.get(arg, false)
	case "convert":
		return false, s.get(arg, true)
	case "extract-all":
		return false, s.extractAll(ctx)
	case "help":
		fmt.Fprint(s.out, helpText)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return false, nil
}

func (s *Shell) list() {
	cur := s.cursor.Current()
	for _, name := range cur.SortedNames() {
		dirColor.Fprintf(s.out, "%s/", name) //nolint:errcheck
		fmt.Fprintf(s.out, "  (%d)\n", cur.Directories[name].Count())
	}
	for _, f := range cur.Files {
		fmt.Fprintf(s.out, "%-32s %10v\n", f.FileName, units.Base2Bytes(f.FileSize))
	}
}

func (s *Shell) changeDir(arg string) error {
	switch arg {
	case "":
		return fmt.Errorf("cd: %w", ErrMissingArgument)
	case "..":
		s.cursor.BackDir()
		return nil
	case "/":
		s.cursor.Reset()
		return nil
	}

	// 途中で失敗してもカーソルが動かないように先に存在を確かめる
	abs := strings.HasPrefix(arg, "/")
	base := s.cursor.Current()
	if abs {
		base = s.cursor.Root()
	}
	if _, ok := base.Find(arg); !ok {
		return fmt.Errorf("%w: %s", archive.ErrDirectoryNotFound, arg)
	}
	if abs {
		s.cursor.Reset()
	}
	for _, name := range strings.Split(arg, "/") {
		if name == "" {
			continue
		}
		if _, err := s.cursor.MoveDir(name); err != nil {
			return err
		}
	}
	return nil
}

// find は現在のディレクトリからファイルを探します
func (s *Shell) find(name string) (archive.FileEntry, error) {
	for _, f := range s.cursor.Current().Files {
		if f.FileName == name {
			return f, nil
		}
	}
	return archive.FileEntry{}, fmt.Errorf("%w: %s", archive.ErrEntryNotFound, name)
}

func (s *Shell) sink(convert bool) extract.Sink {
	if convert && s.opts.Converter != nil {
		return extract.NewConvertSink(s.opts.FileSystem, s.opts.OutputDir, s.opts.Converter, s.opts.Logger, s.arc.Files())
	}
	return extract.NewFileSink(s.opts.FileSystem, s.opts.OutputDir)
}

func (s *Shell) get(name string, convert bool) error {
	if name == "" {
		return ErrMissingArgument
	}
	entry, err := s.find(name)
	if err != nil {
		return err
	}
	data, err := s.arc.Extract(entry)
	if err != nil {
		return err
	}
	if err := s.sink(convert).Write(entry, data); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s を書き出しました\n", entry.FullPath)
	return nil
}

func (s *Shell) extractAll(ctx context.Context) error {
	summary, err := extract.Run(ctx, s.arc, s.sink(s.opts.Convert), s.opts.Extract)
	fmt.Fprintf(s.out, "%d/%d 個のファイルを書き出しました\n", summary.Extracted, summary.Total)
	return err
}
