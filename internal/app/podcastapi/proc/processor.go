package proc

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"

	"podcastapi/internal/app/podcastapi/podcast"
)

// Processor binds request input to podcasts and episodes, stores them and their files
type Processor struct {
	Storage *SQLStore
	Files   Blobs
	Probe   Prober
	Events  *Dispatcher
	Now     func() time.Time
}

// SavePodcast applies in to p and stores the result. p itself is never modified.
// Existing podcasts are returned as is for empty input.
func (p *Processor) SavePodcast(ctx context.Context, pc *podcast.Podcast, in podcast.Input, mode podcast.Mode) (*podcast.Podcast, error) {
	if pc.ID != 0 && in.Empty() {
		return pc, nil
	}

	res := *pc
	if errs := res.Bind(in, mode); len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}

	res.Touch(p.now())
	if err := p.Storage.SavePodcast(ctx, &res); err != nil {
		return nil, err
	}
	log.Printf("[INFO] podcast %d saved", res.ID)
	return &res, nil
}

// SaveEpisode applies in to ep and stores the result, see SavePodcast
func (p *Processor) SaveEpisode(ctx context.Context, ep *podcast.Episode, in podcast.Input, mode podcast.Mode) (*podcast.Episode, error) {
	if ep.ID != 0 && in.Empty() {
		return ep, nil
	}

	res := *ep
	errs := res.Bind(in, mode)
	// podcast is the last bound field, its reference check keeps messages in field order
	if res.PodcastID > 0 && res.PodcastID != ep.PodcastID {
		exists, err := p.Storage.PodcastExists(ctx, res.PodcastID)
		if err != nil {
			return nil, err
		}
		if !exists {
			errs = append(errs, fmt.Sprintf("podcast %d does not exist", res.PodcastID))
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}

	res.Touch(p.now())
	if err := p.Storage.SaveEpisode(ctx, &res); err != nil {
		return nil, err
	}
	log.Printf("[INFO] episode %d of podcast %d saved", res.ID, res.PodcastID)
	return &res, nil
}

// DeletePodcast removes podcast with its episodes and download log
func (p *Processor) DeletePodcast(ctx context.Context, id int64) error {
	episodes, err := p.Storage.CountEpisodes(ctx, id)
	if err != nil {
		return err
	}
	if err := p.Storage.DeletePodcast(ctx, id); err != nil {
		return err
	}
	log.Printf("[INFO] podcast %d deleted with %d episodes", id, episodes)
	return nil
}

// DeleteEpisode moves the episode file to backups and removes the episode
func (p *Processor) DeleteEpisode(ctx context.Context, ep *podcast.Episode) error {
	if key := ep.StoredFile(); key != "" {
		if err := p.backup(ctx, key); err != nil {
			return err
		}
	}
	if err := p.Storage.DeleteEpisode(ctx, ep.ID); err != nil {
		return err
	}
	log.Printf("[INFO] episode %d deleted", ep.ID)
	return nil
}

// RecordDownload publishes the download of ep, the log entry is written asynchronously
func (p *Processor) RecordDownload(ep *podcast.Episode) {
	if p.Events == nil {
		log.Printf("[WARN] no event dispatcher, download of episode %d not recorded", ep.ID)
		return
	}
	p.Events.Publish(podcast.NewEpisodeDownloadedEvent(ep, p.now()))
}

// backup moves key to the backups namespace if it exists
func (p *Processor) backup(ctx context.Context, key string) error {
	exists, err := p.Files.Has(ctx, key)
	if err != nil {
		return &StorageError{Op: "check", Key: key, Err: err}
	}
	if !exists {
		return nil
	}

	target := BackupKey(key)
	if err := p.Files.Rename(ctx, key, target); err != nil && !errors.Is(err, ErrNotFound) {
		return &StorageError{Op: "rename", Key: key, Err: err}
	}
	log.Printf("[INFO] moved %s to %s", key, target)
	return nil
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
