// Package extract はアーカイブの全エントリを並列に展開します
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shiroemons/go-akaibu/pkg/archive"
)

// Policy は失敗したエントリがあった場合の動作です
type Policy int

const (
	// FailFast は最初の失敗で新しいエントリの展開をやめます
	FailFast Policy = iota
	// BestEffort は全エントリを処理し、失敗をまとめて報告します
	BestEffort
)

// Progress は進捗です。Completed は失敗したエントリも含めた処理済みの数です。
type Progress struct {
	Completed int
	Total     int
	Bytes     int64
	Entry     string
}

// Options は展開の設定です
type Options struct {
	Workers    int // 0 以下の場合は CPU 数
	Policy     Policy
	OnProgress func(Progress)
}

// Sink は展開したエントリの書き出し先です。複数の goroutine から同時に呼ばれます。
type Sink interface {
	Write(entry archive.FileEntry, data []byte) error
}

// Failure は失敗したエントリです。Index は Files() の並びでの位置です。
type Failure struct {
	Index int
	Entry archive.FileEntry
	Err   error
}

// Error はエラーメッセージを返します
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Entry.FullPath, f.Err)
}

// Unwrap は元のエラーを返します
func (f *Failure) Unwrap() error {
	return f.Err
}

// Summary は展開結果です
type Summary struct {
	Total     int
	Extracted int
	Bytes     int64
	Failures  []*Failure
}

// Report は BestEffort で失敗があった場合のエラーです
type Report struct {
	Failures []*Failure
}

// Error はエラーメッセージを返します
func (r *Report) Error() string {
	msgs := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%d 個のエントリの展開に失敗しました:\n  %s", len(r.Failures), strings.Join(msgs, "\n  "))
}

// Unwrap は各エントリのエラーを返します
func (r *Report) Unwrap() []error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Run は arc.Files() の全エントリを展開して sink に書き出します。
//
// FailFast の場合は最初の失敗以降に新しいエントリを始めず、観測した失敗のうち
// Files() での位置が最も小さいものを返します。BestEffort の場合は全エントリを処理し、
// 失敗があれば *Report を返します。
func Run(ctx context.Context, arc archive.Archive, sink Sink, opts Options) (Summary, error) {
	files := arc.Files()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu      sync.Mutex
		summary = Summary{Total: len(files)}
		done    int
	)

	finish := func(i int, e archive.FileEntry, n int, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if err != nil {
			summary.Failures = append(summary.Failures, &Failure{Index: i, Entry: e, Err: err})
		} else {
			summary.Extracted++
			summary.Bytes += int64(n)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Completed: done, Total: len(files), Bytes: summary.Bytes, Entry: e.FullPath})
		}
	}

	for i, e := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// 失敗後に待っていたエントリは始めない
			if gctx.Err() != nil {
				return nil
			}
			data, err := arc.Extract(e)
			if err == nil {
				err = sink.Write(e, data)
			}
			finish(i, e, len(data), err)
			if err != nil && opts.Policy == FailFast {
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(summary.Failures, func(a, b *Failure) int { return a.Index - b.Index })

	if len(summary.Failures) > 0 {
		if opts.Policy == FailFast {
			return summary, summary.Failures[0]
		}
		return summary, &Report{Failures: summary.Failures}
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// IsPartial は err が BestEffort の一部失敗か判定します
func IsPartial(err error) bool {
	var r *Report
	return errors.As(err, &r)
}
