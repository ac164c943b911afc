package scheme

import (
	"bytes"
	"crypto/md5" //nolint:gosec
	"crypto/sha1" //nolint:gosec
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"

	"github.com/shiroemons/go-akaibu/pkg/crypto"
)

// testFile はアーカイブに格納するファイルです
type testFile struct {
	name string
	data []byte
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func le32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func buildPF(magic string, files []testFile, encrypted bool) []byte {
	indexSize := 4
	for _, f := range files {
		indexSize += 4 + len(f.name) + 12
	}
	offset := uint32(pfHeaderSize + indexSize)

	index := le32(nil, uint32(len(files)))
	var data []byte
	for _, f := range files {
		index = le32(index, uint32(len(f.name)))
		index = append(index, f.name...)
		index = le32(index, 0)
		index = le32(index, offset+uint32(len(data)))
		index = le32(index, uint32(len(f.data)))
		data = append(data, f.data...)
	}

	if encrypted {
		key := sha1.Sum(index) //nolint:gosec
		pos := 0
		for _, f := range files {
			crypto.XORCycle(data[pos:pos+len(f.data)], key[:], 0)
			pos += len(f.data)
		}
	}

	out := append([]byte(magic), le32(nil, uint32(indexSize))...)
	out = append(out, index...)
	return append(out, data...)
}

func buildBGI(t *testing.T, l bgiLayout, files []testFile) []byte {
	t.Helper()
	out := append([]byte(l.magic), le32(nil, uint32(len(files)))...)
	var data []byte
	for _, f := range files {
		name, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(f.name))
		require.NoError(t, err)
		require.Less(t, len(name), l.nameSize)

		entry := make([]byte, l.entrySize)
		copy(entry, name)
		binary.LittleEndian.PutUint32(entry[l.nameSize:], uint32(len(data)))
		binary.LittleEndian.PutUint32(entry[l.nameSize+4:], uint32(len(f.data)))
		out = append(out, entry...)
		data = append(data, f.data...)
	}
	return append(out, data...)
}

func buildGXP(t *testing.T, files []testFile) []byte {
	t.Helper()
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()

	var index, data []byte
	for _, f := range files {
		name, err := enc.Bytes([]byte(f.name))
		require.NoError(t, err)
		name = append(name, 0, 0)

		entry := make([]byte, gxpEntryFixedSize, gxpEntryFixedSize+len(name))
		binary.LittleEndian.PutUint32(entry[0x00:], uint32(gxpEntryFixedSize+len(name)))
		binary.LittleEndian.PutUint32(entry[0x04:], uint32(len(f.data)))
		binary.LittleEndian.PutUint32(entry[0x0C:], uint32(len(name)/2-1))
		binary.LittleEndian.PutUint64(entry[0x18:], uint64(len(data)))
		entry = append(entry, name...)
		gxpCrypt(entry)
		index = append(index, entry...)

		d := append([]byte(nil), f.data...)
		gxpCrypt(d)
		data = append(data, d...)
	}

	hdr := make([]byte, gxpHeaderSize)
	copy(hdr, GXPMagic)
	binary.LittleEndian.PutUint32(hdr[0x04:], 100)
	binary.LittleEndian.PutUint32(hdr[0x18:], uint32(len(files)))
	binary.LittleEndian.PutUint32(hdr[0x1C:], uint32(len(index)))
	binary.LittleEndian.PutUint64(hdr[0x20:], uint64(gxpHeaderSize+len(index)))

	out := append(hdr, index...)
	return append(out, data...)
}

// acv1File は ACV1 に格納するファイルです
type acv1File struct {
	hash  uint64
	flags byte
	data  []byte
}

func buildACV1(t *testing.T, masterKey uint64, files []acv1File) []byte {
	t.Helper()
	out := append([]byte(ACV1Magic), le32(nil, uint32(len(files))^acv1CountKey)...)
	dataStart := uint32(8 + len(files)*acv1EntrySize)

	var data []byte
	for _, f := range files {
		stored := append([]byte(nil), f.data...)
		if f.flags&ACV1FlagCompressed != 0 {
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			_, err := zw.Write(f.data)
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			stored = buf.Bytes()
		}
		if f.flags&ACV1FlagScript != 0 {
			crypto.XORWords(stored, uint32(masterKey^f.hash))
		}

		k := uint32(f.hash)
		out = binary.LittleEndian.AppendUint64(out, f.hash)
		out = append(out, f.flags)
		out = le32(out, (dataStart+uint32(len(data)))^k)
		out = le32(out, uint32(len(stored))^k)
		out = le32(out, uint32(len(f.data))^k)
		data = append(data, stored...)
	}
	return append(out, data...)
}

// cpzDir は CPZ7 のディレクトリです
type cpzDir struct {
	name  string
	key   uint32
	files []testFile
}

func cpzName(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return append(b, 0)
}

func buildCPZ7(t *testing.T, password string, seed uint32, dirs []cpzDir) []byte {
	t.Helper()
	key := CPZ7Key(password)

	var dirIndex, fileIndex, data []byte
	for _, d := range dirs {
		name := cpzName(t, d.name)
		dirIndex = le32(dirIndex, uint32(16+len(name)))
		dirIndex = le32(dirIndex, uint32(len(d.files)))
		dirIndex = le32(dirIndex, uint32(len(fileIndex)))
		dirIndex = le32(dirIndex, d.key)
		dirIndex = append(dirIndex, name...)

		for i, f := range d.files {
			fileKey := uint32(i + 1)
			fname := cpzName(t, f.name)
			fileIndex = le32(fileIndex, uint32(16+len(fname)))
			fileIndex = le32(fileIndex, uint32(len(data)))
			fileIndex = le32(fileIndex, uint32(len(f.data)))
			fileIndex = le32(fileIndex, fileKey)
			fileIndex = append(fileIndex, fname...)

			perm := crypto.NewRNGMT(key ^ d.key ^ fileKey).Permutation()
			for _, b := range f.data {
				data = append(data, perm[b])
			}
		}
	}

	index := append(dirIndex, fileIndex...)
	sum := md5.Sum(index) //nolint:gosec
	crypto.NewRNGMT(seed ^ key).KeyStream(index)

	hdr := make([]byte, cpzHeaderSize)
	copy(hdr, CPZ7Magic)
	binary.LittleEndian.PutUint32(hdr[0x04:], uint32(len(dirs)))
	binary.LittleEndian.PutUint32(hdr[0x08:], uint32(len(dirIndex)))
	binary.LittleEndian.PutUint32(hdr[0x0C:], uint32(len(fileIndex)))
	copy(hdr[0x10:], sum[:])
	binary.LittleEndian.PutUint32(hdr[0x20:], seed)

	out := append(hdr, index...)
	return append(out, data...)
}
