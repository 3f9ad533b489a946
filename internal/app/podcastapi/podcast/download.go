package podcast

import "time"

// EpisodeDownloaded is one entry of the download log, created by the download event listener only
type EpisodeDownloaded struct {
	ID         int64
	EventID    string
	EpisodeID  int64
	PodcastID  int64
	OccurredAt time.Time
}

// EpisodeDownloadedName is the event name listeners subscribe to
const EpisodeDownloadedName = "episode.downloaded"

// EpisodeDownloadedEvent is raised when an episode file was handed out to a client
type EpisodeDownloadedEvent struct {
	EpisodeID  int64
	PodcastID  int64
	OccurredAt time.Time
}

// Name of the event
func (e EpisodeDownloadedEvent) Name() string { return EpisodeDownloadedName }

// NewEpisodeDownloadedEvent builds the event for ep at the given time
func NewEpisodeDownloadedEvent(ep *Episode, at time.Time) EpisodeDownloadedEvent {
	return EpisodeDownloadedEvent{EpisodeID: ep.ID, PodcastID: ep.PodcastID, OccurredAt: at.UTC()}
}
