package podcast

import (
	"time"
)

// Episode of podcast. Optional values are nil until set, audio fields are filled by upload only.
type Episode struct {
	ID            int64
	PodcastID     int64
	Title         string
	Description   *string
	EpisodeNumber int64
	DownloadURL   *string

	Filename          *string
	MimeType          *string
	FileSize          *int64
	TrackLength       *int64
	BitRate           *int64
	SampleRate        *int64
	Channels          *int64
	IsVariableBitRate *bool
	IsLossless        *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Audio is the metadata probed from an uploaded file
type Audio struct {
	TrackLength     int64 // seconds
	BitRate         int64 // bits per second
	SampleRate      int64
	Channels        int64
	VariableBitRate bool
	Lossless        bool
}

// Touch stamps the episode before it is persisted
func (e *Episode) Touch(now time.Time) {
	stamp(&e.CreatedAt, &e.UpdatedAt, now)
}

// SetAudio copies probed metadata into the episode
func (e *Episode) SetAudio(a Audio) {
	e.TrackLength = &a.TrackLength
	e.BitRate = &a.BitRate
	e.SampleRate = &a.SampleRate
	e.Channels = &a.Channels
	e.IsVariableBitRate = &a.VariableBitRate
	e.IsLossless = &a.Lossless
}

// SetFile records the stored file of the episode
func (e *Episode) SetFile(key, url, mimeType string, size int64) {
	e.Filename = &key
	e.DownloadURL = &url
	e.MimeType = &mimeType
	e.FileSize = &size
}

// StoredFile returns the storage key of the episode file or empty string
func (e *Episode) StoredFile() string {
	if e.Filename == nil {
		return ""
	}
	return *e.Filename
}

// Bind applies in to the episode field by field and validates every field afterwards.
// Replace clears fields missing from in, Patch keeps them. The returned messages follow
// the field order title, description, episodeNumber, downloadUrl, podcast. The caller
// is expected to bind a copy and discard it when messages are returned.
// Existence of the referenced podcast is not checked here.
func (e *Episode) Bind(in Input, mode Mode) []string {
	var errs []string
	for _, f := range episodeFields {
		v, ok := in[f.name]
		if ok || mode == Replace {
			if err := f.bind(e, v); err != nil {
				errs = append(errs, err.Error())
				continue
			}
		}
		if f.check != nil {
			errs = append(errs, f.check(e)...)
		}
	}
	return errs
}

type episodeField struct {
	name  string
	bind  func(e *Episode, v any) error
	check func(e *Episode) []string
}

var episodeFields = []episodeField{
	{
		name: "title",
		bind: func(e *Episode, v any) error {
			e.Title = text(v)
			return nil
		},
		check: func(e *Episode) []string { return checkLength("title", e.Title) },
	},
	{
		name: "description",
		bind: func(e *Episode, v any) error {
			e.Description = optionalText(v)
			return nil
		},
	},
	{
		name: "episodeNumber",
		bind: func(e *Episode, v any) error {
			n, err := requiredInteger("episodeNumber", v)
			e.EpisodeNumber = n
			return err
		},
		check: func(e *Episode) []string {
			if e.EpisodeNumber <= 0 {
				return []string{"episodeNumber should be positive"}
			}
			return nil
		},
	},
	{
		name: "downloadUrl",
		bind: func(e *Episode, v any) error {
			e.DownloadURL = optionalText(v)
			return nil
		},
		check: func(e *Episode) []string {
			if e.DownloadURL != nil && !validURL(*e.DownloadURL) {
				return []string{"The url '" + *e.DownloadURL + "' is not a valid url"}
			}
			return nil
		},
	},
	{
		name: "podcast",
		bind: func(e *Episode, v any) error {
			id, err := requiredInteger("podcast", v)
			e.PodcastID = id
			return err
		},
		check: func(e *Episode) []string {
			if e.PodcastID <= 0 {
				return []string{"podcast should not be blank"}
			}
			return nil
		},
	},
}
