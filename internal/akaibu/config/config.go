// Package config は akaibu コマンドの設定管理を行います
package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version はバージョン番号です
const Version = "0.1.0"

// コマンド名
const (
	CommandExtract = "extract"
	CommandList    = "list"
	CommandBrowse  = "browse"
	CommandSchemes = "schemes"
)

// DefaultOutputDir は出力先ディレクトリの既定値です
const DefaultOutputDir = "ext/"

// Config はアプリケーションの設定を保持します
type Config struct {
	Command     string
	Inputs      []string
	OutputDir   string
	Convert     bool
	Manual      bool
	SchemeIndex int
	Workers     int
	KeepGoing   bool
	NoProgress  bool
	DebugMode   bool
}

// NewApplication は cfg に値を設定する kingpin アプリケーションを作成します
func NewApplication(cfg *Config) *kingpin.Application {
	app := kingpin.New("akaibu", "ビジュアルノベルのアーカイブを展開します")
	app.Version("akaibu version " + Version)
	app.HelpFlag.Short('h')

	app.Flag("output", "出力先ディレクトリ").Short('o').Envar("AKAIBU_OUTPUT").Default(DefaultOutputDir).StringVar(&cfg.OutputDir)
	app.Flag("convert", "画像とテキストを変換して書き出す").Short('c').BoolVar(&cfg.Convert)
	app.Flag("manual", "形式を判別できない場合に全スキームから選ぶ").Short('m').BoolVar(&cfg.Manual)
	app.Flag("scheme", "スキームの番号 (対話なしで選ぶ)").Short('s').Default("-1").IntVar(&cfg.SchemeIndex)
	app.Flag("workers", "並列に展開するワーカー数").Short('w').Envar("AKAIBU_WORKERS").Default("0").IntVar(&cfg.Workers)
	app.Flag("keep-going", "失敗したエントリがあっても残りを展開する").Short('k').BoolVar(&cfg.KeepGoing)
	app.Flag("no-progress", "進捗を表示しない").BoolVar(&cfg.NoProgress)
	app.Flag("debug", "デバッグ出力を有効にする").Short('d').BoolVar(&cfg.DebugMode)

	app.Command(CommandExtract, "アーカイブを展開する").Default().
		Arg("files", "アーカイブまたはリソースファイル").Required().StringsVar(&cfg.Inputs)
	app.Command(CommandList, "アーカイブ内のファイルを一覧表示する").
		Arg("files", "アーカイブファイル").Required().StringsVar(&cfg.Inputs)
	app.Command(CommandBrowse, "アーカイブを対話的に閲覧する").
		Arg("files", "アーカイブファイル").Required().StringsVar(&cfg.Inputs)
	app.Command(CommandSchemes, "対応している形式とスキームを表示する")

	return app
}

// Parse はコマンドライン引数を解析して設定を返します
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	app := NewApplication(cfg)
	cmd, err := app.Parse(args)
	if err != nil {
		return nil, err
	}
	cfg.Command = cmd
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return cfg, nil
}

// DebugLogger はデバッグ出力を管理します
type DebugLogger struct {
	enabled bool
	sugar   *zap.SugaredLogger
}

// NewDebugLogger は標準エラー出力に書き出す DebugLogger を作成します
func NewDebugLogger(enabled bool) *DebugLogger {
	level := zapcore.InfoLevel
	if enabled {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)

	return NewDebugLoggerWithCore(enabled, core)
}

// NewDebugLoggerWithCore は core に書き出す DebugLogger を作成します
func NewDebugLoggerWithCore(enabled bool, core zapcore.Core) *DebugLogger {
	return &DebugLogger{enabled: enabled, sugar: zap.New(core).Sugar()}
}

// Printf はデバッグモードが有効な場合のみメッセージを表示します
func (d *DebugLogger) Printf(format string, a ...any) {
	if d.enabled {
		d.sugar.Debugf(strings.TrimSuffix(format, "\n"), a...)
	}
}

// Debugw は構造化されたデバッグメッセージを出力します
func (d *DebugLogger) Debugw(msg string, keysAndValues ...any) {
	d.sugar.Debugw(msg, keysAndValues...)
}

// Warnf は警告を出力します
func (d *DebugLogger) Warnf(format string, a ...any) {
	d.sugar.Warnf(format, a...)
}

// Sync はバッファされたログを書き出します
func (d *DebugLogger) Sync() error {
	return d.sugar.Sync()
}
