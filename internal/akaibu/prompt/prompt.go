// Package prompt はスキームの選択方法を提供します
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/shiroemons/go-akaibu/internal/akaibu/interfaces"
)

var (
	// ErrInvalidSelection は範囲外の番号が指定された場合のエラー
	ErrInvalidSelection = errors.New("選択された番号が範囲外です")

	// ErrNotInteractive は端末以外でスキームの選択が必要になった場合のエラー
	ErrNotInteractive = errors.New("スキームを選択できません。-s オプションで番号を指定してください")

	// ErrNoCandidates は候補が空の場合のエラー
	ErrNoCandidates = errors.New("選択できる候補がありません")
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	indexColor  = color.New(color.FgYellow)
	noticeColor = color.New(color.FgRed)
)

// Interactive は候補を表示して番号を入力させます
type Interactive struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractive は新しいInteractiveを作成します。in が *bufio.Reader の場合はそのまま使います。
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewReader(in), out: out}
}

// Select は有効な番号が入力されるまで繰り返し尋ねます
func (s *Interactive) Select(title string, candidates []string) (int, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	titleColor.Fprintf(s.out, "%s\n", title) //nolint:errcheck
	for i, c := range candidates {
		indexColor.Fprintf(s.out, "  %d:", i) //nolint:errcheck
		fmt.Fprintf(s.out, " %s\n", c)
	}

	for {
		fmt.Fprintf(s.out, "番号を入力してください (0-%d): ", len(candidates)-1)
		line, err := s.in.ReadString('\n')
		text := strings.TrimSpace(line)
		if text != "" {
			if n, convErr := strconv.Atoi(text); convErr == nil && n >= 0 && n < len(candidates) {
				return n, nil
			}
			noticeColor.Fprintf(s.out, "無効な入力です: %q\n", text) //nolint:errcheck
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("%w: 入力が終了しました", ErrInvalidSelection)
			}
			return 0, err
		}
	}
}

// Fixed は -s オプションで指定された番号を返します
type Fixed struct {
	Index int
}

// Select は固定の番号を返します
func (s Fixed) Select(title string, candidates []string) (int, error) {
	if s.Index < 0 || s.Index >= len(candidates) {
		return 0, fmt.Errorf("%w: %d (0-%d)", ErrInvalidSelection, s.Index, len(candidates)-1)
	}
	return s.Index, nil
}

// NonInteractive は常に ErrNotInteractive を返します
type NonInteractive struct{}

// Select は選択できないことを返します
func (NonInteractive) Select(title string, candidates []string) (int, error) {
	return 0, fmt.Errorf("%w (%s)", ErrNotInteractive, title)
}

// IsTerminal は r が端末か判定します
func IsTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New は設定と端末の状態から Selector を選びます。
// index が 0 以上なら Fixed、interactive なら in から読む Interactive、それ以外は NonInteractive です。
// in が *bufio.Reader の場合はそのまま使うので、ほかの読み手と入力を共有できます。
func New(index int, in io.Reader, interactive bool, out io.Writer) interfaces.Selector {
	if index >= 0 {
		return Fixed{Index: index}
	}
	if in != nil && interactive {
		return NewInteractive(in, out)
	}
	return NonInteractive{}
}
