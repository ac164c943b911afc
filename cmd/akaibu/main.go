package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shiroemons/go-akaibu/internal/akaibu/app"
	"github.com/shiroemons/go-akaibu/internal/akaibu/config"
	"github.com/shiroemons/go-akaibu/pkg/archive"
)

func main() {
	// コマンドライン引数の解析
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// アプリケーションの実行
	application := app.New(cfg)
	err = application.Run(ctx)
	stop()
	if err != nil {
		report(err)
		os.Exit(1)
	}
}

// report は入力ファイルごとのエラーを種別付きで表示します
func report(err error) {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		if kind := archive.KindOf(e); kind != "" {
			fmt.Fprintf(os.Stderr, "エラー [%s]: %v\n", kind, e)
			continue
		}
		fmt.Fprintf(os.Stderr, "エラー: %v\n", e)
	}
}
