package proc

import (
	"context"
	"io"

	log "github.com/go-pkgz/lgr"

	"podcastapi/internal/app/podcastapi/podcast"
)

// File is an uploaded episode file
type File struct {
	Name    string
	Size    int64
	Content io.ReadSeeker
}

// Upload stores f as the file of ep. The previous file is moved to backups, audio metadata
// is read best-effort and a failed read leaves metadata fields unset. ep itself is never modified.
func (p *Processor) Upload(ctx context.Context, ep *podcast.Episode, f *File) (*podcast.Episode, error) {
	if f == nil || f.Content == nil {
		return nil, &ValidationError{Messages: []string{"Invalid File"}}
	}

	if key := ep.StoredFile(); key != "" {
		if err := p.backup(ctx, key); err != nil {
			return nil, err
		}
	}

	ft, err := DetectType(f.Content, f.Name)
	if err != nil {
		return nil, &StorageError{Op: "read", Key: f.Name, Err: err}
	}
	key := EpisodeKey(DeriveFilename(f.Name, ft.Ext))

	size := f.Size
	if size <= 0 {
		size = -1
	}
	if err := p.Files.Put(ctx, key, f.Content, size, ft.MimeType); err != nil {
		return nil, &StorageError{Op: "write", Key: key, Err: err}
	}

	res := *ep
	if p.Probe != nil {
		if err := rewind(f.Content); err != nil {
			log.Printf("[WARN] can't rewind %s for metadata, %v", key, err)
		} else if audio, err := p.Probe.Probe(f.Content); err != nil {
			log.Printf("[WARN] no audio metadata for %s, %v", key, err)
		} else {
			res.SetAudio(*audio)
		}
	}

	info, err := p.Files.Stat(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "stat", Key: key, Err: err}
	}

	res.SetFile(key, p.Files.URL(key), info.ContentType, info.Size)
	res.Touch(p.now())
	if err := p.Storage.SaveEpisode(ctx, &res); err != nil {
		return nil, err
	}
	log.Printf("[INFO] episode %d file %s stored, %d bytes", res.ID, key, info.Size)
	return &res, nil
}
