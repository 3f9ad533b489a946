package podcast

import "sort"

// Profile selects the set of fields rendered for a record
type Profile int

const (
	// ProfileDefault renders core fields only
	ProfileDefault Profile = iota
	// ProfileEpisodes also renders the episodes of a podcast
	ProfileEpisodes
)

var podcastOutput = map[Profile][]string{
	ProfileDefault:  {"id", "name", "createdAt", "updatedAt"},
	ProfileEpisodes: {"id", "name", "createdAt", "updatedAt", "episodes"},
}

// episodes never embed their podcast, the reference is rendered as the podcast id.
// filename is internal and not listed.
var episodeOutput = []string{
	"id", "title", "description", "episodeNumber", "podcast", "downloadUrl",
	"mimeType", "fileSize", "trackLength", "bitRate", "sampleRate", "channels",
	"isVariableBitRate", "isLossless", "createdAt", "updatedAt",
}

var podcastValues = map[string]func(p *Podcast) any{
	"id":        func(p *Podcast) any { return p.ID },
	"name":      func(p *Podcast) any { return p.Name },
	"createdAt": func(p *Podcast) any { return p.CreatedAt },
	"updatedAt": func(p *Podcast) any { return p.UpdatedAt },
}

var episodeValues = map[string]func(e *Episode) any{
	"id":                func(e *Episode) any { return e.ID },
	"title":             func(e *Episode) any { return e.Title },
	"description":       func(e *Episode) any { return e.Description },
	"episodeNumber":     func(e *Episode) any { return e.EpisodeNumber },
	"podcast":           func(e *Episode) any { return e.PodcastID },
	"downloadUrl":       func(e *Episode) any { return e.DownloadURL },
	"mimeType":          func(e *Episode) any { return e.MimeType },
	"fileSize":          func(e *Episode) any { return e.FileSize },
	"trackLength":       func(e *Episode) any { return e.TrackLength },
	"bitRate":           func(e *Episode) any { return e.BitRate },
	"sampleRate":        func(e *Episode) any { return e.SampleRate },
	"channels":          func(e *Episode) any { return e.Channels },
	"isVariableBitRate": func(e *Episode) any { return e.IsVariableBitRate },
	"isLossless":        func(e *Episode) any { return e.IsLossless },
	"createdAt":         func(e *Episode) any { return e.CreatedAt },
	"updatedAt":         func(e *Episode) any { return e.UpdatedAt },
}

// NormalizePodcast renders p with the fields of profile. episodes is used by ProfileEpisodes only.
func NormalizePodcast(p *Podcast, episodes []*Episode, profile Profile) map[string]any {
	fields, ok := podcastOutput[profile]
	if !ok {
		fields = podcastOutput[ProfileDefault]
	}

	res := make(map[string]any, len(fields))
	for _, name := range fields {
		if name == "episodes" {
			res[name] = NormalizeEpisodes(episodes)
			continue
		}
		res[name] = podcastValues[name](p)
	}
	return res
}

// NormalizePodcasts renders a list of podcasts with the default profile
func NormalizePodcasts(podcasts []*Podcast) []map[string]any {
	res := make([]map[string]any, 0, len(podcasts))
	for _, p := range podcasts {
		res = append(res, NormalizePodcast(p, nil, ProfileDefault))
	}
	return res
}

// NormalizeEpisode renders e
func NormalizeEpisode(e *Episode) map[string]any {
	res := make(map[string]any, len(episodeOutput))
	for _, name := range episodeOutput {
		res[name] = episodeValues[name](e)
	}
	return res
}

// NormalizeEpisodes renders a list of episodes ordered by id
func NormalizeEpisodes(episodes []*Episode) []map[string]any {
	sorted := make([]*Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	res := make([]map[string]any, 0, len(sorted))
	for _, e := range sorted {
		res = append(res, NormalizeEpisode(e))
	}
	return res
}

// NormalizeDownloads renders the download log of an episode
func NormalizeDownloads(downloads []*EpisodeDownloaded) []map[string]any {
	res := make([]map[string]any, 0, len(downloads))
	for _, d := range downloads {
		res = append(res, map[string]any{
			"id":         d.ID,
			"eventId":    d.EventID,
			"episode":    d.EpisodeID,
			"podcast":    d.PodcastID,
			"occurredAt": d.OccurredAt,
		})
	}
	return res
}
