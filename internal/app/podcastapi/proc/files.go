package proc

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	episodesPrefix = "episodes/"
	backupsPrefix  = "backups/"
)

// FileType is the detected type of an uploaded file
type FileType struct {
	Ext      string
	MimeType string
}

var containerTypes = map[tag.FileType]FileType{
	tag.MP3:  {Ext: "mp3", MimeType: "audio/mpeg"},
	tag.M4A:  {Ext: "m4a", MimeType: "audio/mp4"},
	tag.M4B:  {Ext: "m4b", MimeType: "audio/mp4"},
	tag.M4P:  {Ext: "m4p", MimeType: "audio/mp4"},
	tag.ALAC: {Ext: "m4a", MimeType: "audio/mp4"},
	tag.FLAC: {Ext: "flac", MimeType: "audio/flac"},
	tag.OGG:  {Ext: "ogg", MimeType: "audio/ogg"},
	tag.DSF:  {Ext: "dsf", MimeType: "audio/dsf"},
}

var sniffedExt = map[string]string{
	"audio/mpeg":      "mp3",
	"audio/wave":      "wav",
	"audio/aiff":      "aiff",
	"audio/basic":     "au",
	"audio/midi":      "mid",
	"application/ogg": "ogg",
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_]`)

var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DetectType sniffs the content of r, the client file name is the last resort for the extension.
// r is rewound before returning.
func DetectType(r io.ReadSeeker, name string) (FileType, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FileType{}, err
	}
	if _, typ, err := tag.Identify(r); err == nil {
		if ft, ok := containerTypes[typ]; ok {
			return ft, rewind(r)
		}
	}

	if err := rewind(r); err != nil {
		return FileType{}, err
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FileType{}, err
	}
	head = head[:n]
	if err := rewind(r); err != nil {
		return FileType{}, err
	}

	// bare mpeg audio frames without id3 tag
	if frameSync(head) {
		return containerTypes[tag.MP3], nil
	}

	mimeType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		mimeType = "application/octet-stream"
	}
	if ext, ok := sniffedExt[mimeType]; ok {
		return FileType{Ext: ext, MimeType: mimeType}, nil
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	ext = unsafeName.ReplaceAllString(ext, "")
	if ext == "" {
		ext = "bin"
	}
	return FileType{Ext: ext, MimeType: mimeType}, nil
}

// DeriveFilename makes a storage safe and unique file name from the client file name:
// ascii folded, lower case, [a-z0-9_] only, followed by a unique token and ext.
func DeriveFilename(original, ext string) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	folded, _, err := transform.String(asciiFold, base)
	if err != nil {
		folded = base
	}
	safe := unsafeName.ReplaceAllString(strings.ToLower(folded), "")
	if safe == "" {
		safe = "episode"
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return safe + "-" + token + "." + ext
}

// EpisodeKey is the storage key of a derived file name
func EpisodeKey(filename string) string {
	return episodesPrefix + filename
}

// BackupKey is the key the previous file of an episode is moved to
func BackupKey(key string) string {
	if !strings.Contains(key, episodesPrefix) {
		return backupsPrefix + key
	}
	return strings.ReplaceAll(key, episodesPrefix, backupsPrefix)
}

func rewind(r io.Seeker) error {
	_, err := r.Seek(0, io.SeekStart)
	return err
}
