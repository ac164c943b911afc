package app

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/shiroemons/go-akaibu/internal/akaibu/config"
	"github.com/shiroemons/go-akaibu/internal/akaibu/interfaces"
	"github.com/shiroemons/go-akaibu/pkg/scheme"
)

type testFile struct {
	name string
	data []byte
}

// buildPF6 は暗号化のない PF6 アーカイブを作ります
func buildPF6(files []testFile) []byte {
	indexSize := 4
	for _, f := range files {
		indexSize += 4 + len(f.name) + 12
	}
	offset := uint32(7 + indexSize)

	index := binary.LittleEndian.AppendUint32(nil, uint32(len(files)))
	var data []byte
	for _, f := range files {
		index = binary.LittleEndian.AppendUint32(index, uint32(len(f.name)))
		index = append(index, f.name...)
		index = binary.LittleEndian.AppendUint32(index, 0)
		index = binary.LittleEndian.AppendUint32(index, offset+uint32(len(data)))
		index = binary.LittleEndian.AppendUint32(index, uint32(len(f.data)))
		data = append(data, f.data...)
	}

	out := append([]byte(scheme.PF6Magic), binary.LittleEndian.AppendUint32(nil, uint32(indexSize))...)
	out = append(out, index...)
	return append(out, data...)
}

type acv1File struct {
	hash  uint64
	flags byte
	data  []byte // flags に関係なくそのまま格納します
	size  uint32
}

// buildACV1 はスクリプト暗号化のない ACV1 アーカイブを作ります
func buildACV1(files []acv1File) []byte {
	out := append([]byte(scheme.ACV1Magic), binary.LittleEndian.AppendUint32(nil, uint32(len(files))^0x8B6A4E5F)...)
	dataStart := uint32(8 + len(files)*21)

	var data []byte
	for _, f := range files {
		k := uint32(f.hash)
		out = binary.LittleEndian.AppendUint64(out, f.hash)
		out = append(out, f.flags)
		out = binary.LittleEndian.AppendUint32(out, (dataStart+uint32(len(data)))^k)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(f.data))^k)
		out = binary.LittleEndian.AppendUint32(out, f.size^k)
		data = append(data, f.data...)
	}
	return append(out, data...)
}

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// newTestApp は出力を buf に集める App を作ります
func newTestApp(t *testing.T, cfg *config.Config, selector interfaces.Selector) (*App, *bytes.Buffer, *observer.ObservedLogs) {
	t.Helper()
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	if cfg.Command == "" {
		cfg.Command = config.CommandExtract
	}
	cfg.Workers = 2
	cfg.NoProgress = true

	core, logs := observer.New(zapcore.DebugLevel)
	var out bytes.Buffer
	a := NewWithOptions(cfg, Options{
		Selector: selector,
		Logger:   config.NewDebugLoggerWithCore(true, core),
		Stdin:    bytes.NewReader(nil),
		Stdout:   &out,
		Stderr:   &out,
	})
	return a, &out, logs
}

func readOutput(t *testing.T, cfg *config.Config, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return data
}
