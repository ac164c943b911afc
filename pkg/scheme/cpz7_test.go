package scheme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-akaibu/pkg/archive"
)

func TestCPZ7Scheme_Extract(t *testing.T) {
	game := CPZ7Games[0]
	dirs := []cpzDir{
		{name: "", key: 0x10, files: []testFile{{name: "startup.txt", data: []byte("start")}}},
		{name: `bg\屋上`, key: 0xABCDEF01, files: []testFile{
			{name: "day.pb3", data: []byte("image bytes 1")},
			{name: "night.pb3", data: []byte("image bytes 2")},
		}},
	}

	arc, err := NewCPZ7Scheme(game).Extract(writeTemp(t, "data.cpz", buildCPZ7(t, game.Password, 0x12345678, dirs)))
	require.NoError(t, err)
	defer arc.Close() //nolint:errcheck

	want := map[string]string{
		"startup.txt":       "start",
		"bg/屋上/day.pb3":   "image bytes 1",
		"bg/屋上/night.pb3": "image bytes 2",
	}
	entries := arc.Files()
	require.Len(t, entries, len(want))
	for _, e := range entries {
		got, err := arc.Extract(e)
		require.NoError(t, err)
		assert.Equal(t, want[e.FullPath], string(got), e.FullPath)
	}

	nav := arc.NavigableDir()
	_, err = nav.MoveDir("bg")
	require.NoError(t, err)
	_, err = nav.MoveDir("屋上")
	require.NoError(t, err)
	assert.Len(t, nav.Current().Files, 2)
}

func TestCPZ7Scheme_WrongGame(t *testing.T) {
	data := buildCPZ7(t, CPZ7Games[0].Password, 1, []cpzDir{
		{name: "", key: 1, files: []testFile{{name: "a.txt", data: []byte("a")}}},
	})

	_, err := NewCPZ7Scheme(CPZ7Games[1]).Open(archive.NewMemorySource("mem", data))
	require.ErrorIs(t, err, archive.ErrMalformedIndex)
}

func TestCPZ7Scheme_Malformed(t *testing.T) {
	_, err := NewCPZ7Scheme(CPZ7Games[0]).Open(archive.NewMemorySource("mem", []byte("CPZ7\x01\x00")))
	require.ErrorIs(t, err, archive.ErrMalformedIndex)

	_, err = NewCPZ7Scheme(CPZ7Games[0]).Open(archive.NewMemorySource("mem", []byte("CPZ6")))
	require.ErrorIs(t, err, archive.ErrUnrecognizedFormat)

	valid := buildCPZ7(t, CPZ7Games[0].Password, 1, []cpzDir{
		{name: "", key: 1, files: []testFile{{name: "a.txt", data: []byte("abc")}}},
	})
	_, err = NewCPZ7Scheme(CPZ7Games[0]).Open(archive.NewMemorySource("mem", valid[:len(valid)-1]))
	require.ErrorIs(t, err, archive.ErrMalformedIndex)
}

func TestCPZ7Key(t *testing.T) {
	assert.Equal(t, CPZ7Key("cmvs"), CPZ7Key("cmvs"))
	assert.NotEqual(t, CPZ7Key("cmvs"), CPZ7Key("cmvs-trial"))
}
