// Package progress は展開の進捗を端末に表示します
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/units"
	"github.com/fatih/color"

	"github.com/shiroemons/go-akaibu/internal/akaibu/extract"
)

// DefaultInterval は進捗行を書き換える最短の間隔です
const DefaultInterval = 200 * time.Millisecond

var (
	doneColor    = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
)

// Bar は1行の進捗表示です。Report は複数の goroutine から呼べます。
type Bar struct {
	out      io.Writer
	enabled  bool
	interval time.Duration
	now      func() time.Time

	mu             sync.Mutex
	label          string
	total          int
	start          time.Time
	lastOutput     time.Time
	lastLineLength int
}

// NewBar は新しいBarを作成します。enabled が false の場合は最後の集計だけを表示します。
func NewBar(out io.Writer, enabled bool) *Bar {
	return &Bar{out: out, enabled: enabled, interval: DefaultInterval, now: time.Now}
}

// Start は新しいアーカイブの進捗を始めます
func (b *Bar) Start(label string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
	b.total = total
	b.start = b.now()
	b.lastOutput = time.Time{}
	b.lastLineLength = 0
}

// Report は進捗を受け取り、前回の表示から interval 以上経っていれば行を書き換えます。
// 最後のエントリは常に表示します。
func (b *Bar) Report(p extract.Progress) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if p.Completed < p.Total && now.Sub(b.lastOutput) < b.interval {
		return
	}
	b.lastOutput = now

	pct := 100.0
	if p.Total > 0 {
		pct = float64(p.Completed) * 100 / float64(p.Total)
	}
	line := fmt.Sprintf(" %s: %d/%d (%.1f%%) %v", b.label, p.Completed, p.Total, pct, units.Base2Bytes(p.Bytes))

	var extraSpaces string
	if len(line) < b.lastLineLength {
		extraSpaces = strings.Repeat(" ", b.lastLineLength-len(line))
	}
	b.lastLineLength = len(line)
	fmt.Fprintf(b.out, "\r%s%s", line, extraSpaces)
}

// Finish は集計を表示します
func (b *Bar) Finish(s extract.Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enabled && b.lastLineLength > 0 {
		fmt.Fprintln(b.out)
	}
	elapsed := b.now().Sub(b.start).Round(time.Millisecond)

	if len(s.Failures) > 0 {
		warningColor.Fprintf(b.out, "%s: %d/%d 個のファイルを展開しました (%v, %d 個失敗, %v)\n", //nolint:errcheck
			b.label, s.Extracted, s.Total, units.Base2Bytes(s.Bytes), len(s.Failures), elapsed)
		return
	}
	doneColor.Fprintf(b.out, "%s: %d 個のファイルを展開しました (%v, %v)\n", //nolint:errcheck
		b.label, s.Extracted, units.Base2Bytes(s.Bytes), elapsed)
}
