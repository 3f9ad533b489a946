package proc

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectType(t *testing.T) {
	tbl := []struct {
		name string
		data []byte
		file string
		want FileType
	}{
		{name: "bare mpeg frames", data: mp3Frames(3), file: "a.wav", want: FileType{Ext: "mp3", MimeType: "audio/mpeg"}},
		{name: "id3 tagged", data: append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), mp3Frames(2)...), file: "x",
			want: FileType{Ext: "mp3", MimeType: "audio/mpeg"}},
		{name: "flac", data: flacStream(44100, 2, 44100), file: "a.mp3", want: FileType{Ext: "flac", MimeType: "audio/flac"}},
		{name: "png", data: []byte("\x89PNG\x0D\x0A\x1A\x0A0000000000000"), file: "a.mp3",
			want: FileType{Ext: "png", MimeType: "image/png"}},
		{name: "text falls back to name", data: []byte("plain notes"), file: "Notes.TXT",
			want: FileType{Ext: "txt", MimeType: "text/plain"}},
		{name: "no ext", data: []byte{0x00, 0x01, 0x02, 0x03}, file: "blob",
			want: FileType{Ext: "bin", MimeType: "application/octet-stream"}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			ft, err := DetectType(r, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ft)

			pos, err := r.Seek(0, io.SeekCurrent)
			require.NoError(t, err)
			assert.Zero(t, pos, "reader rewound")
		})
	}
}

func TestDeriveFilename(t *testing.T) {
	token := `-[0-9a-f]{32}\.`
	tbl := []struct {
		original, ext string
		re            string
	}{
		{"My Episode #1.mp3", "mp3", `^myepisode1` + token + `mp3$`},
		{"Épisode Spécial.MP3", "mp3", `^episodespecial` + token + `mp3$`},
		{"crème_brûlée.flac", "flac", `^creme_brulee` + token + `flac$`},
		{"../../etc/passwd", "bin", `^passwd` + token + `bin$`},
		{`C:\music\Ünïcode.ogg`, "ogg", `^unicode` + token + `ogg$`},
		{"日本語.mp3", "mp3", `^episode` + token + `mp3$`},
		{"", "bin", `^episode` + token + `bin$`},
	}

	for _, tt := range tbl {
		name := DeriveFilename(tt.original, tt.ext)
		assert.Regexp(t, regexp.MustCompile(tt.re), name, "original %q", tt.original)
		assert.NotContains(t, name, "/")
	}

	assert.NotEqual(t, DeriveFilename("same.mp3", "mp3"), DeriveFilename("same.mp3", "mp3"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "episodes/a.mp3", EpisodeKey("a.mp3"))
	assert.Equal(t, "backups/a.mp3", BackupKey("episodes/a.mp3"))
	assert.Equal(t, "backups/legacy.mp3", BackupKey("legacy.mp3"))
	assert.True(t, strings.HasPrefix(BackupKey(EpisodeKey("b.mp3")), backupsPrefix))
}
