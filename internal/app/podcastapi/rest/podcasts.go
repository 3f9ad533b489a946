package rest

import (
	"net/http"

	"podcastapi/internal/app/podcastapi/podcast"
)

func (s *Server) podcast(w http.ResponseWriter, r *http.Request) (*podcast.Podcast, bool) {
	id, valid := idOf(r)
	if !valid {
		notFound(w)
		return nil, false
	}
	p, err := s.Processor.Storage.GetPodcast(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return p, true
}

// standalone renders a single podcast together with its episodes
func (s *Server) standalone(w http.ResponseWriter, r *http.Request, p *podcast.Podcast) {
	episodes, err := s.Processor.Storage.EpisodesOf(r.Context(), p.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, podcast.NormalizePodcast(p, episodes, podcast.ProfileEpisodes))
}

func (s *Server) listPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := s.Processor.Storage.ListPodcasts(r.Context(), pageOf(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, podcast.NormalizePodcasts(podcasts))
}

func (s *Server) viewPodcast(w http.ResponseWriter, r *http.Request) {
	if p, found := s.podcast(w, r); found {
		s.standalone(w, r, p)
	}
}

func (s *Server) createPodcast(w http.ResponseWriter, r *http.Request) {
	s.savePodcast(w, r, &podcast.Podcast{})
}

func (s *Server) updatePodcast(w http.ResponseWriter, r *http.Request) {
	if p, found := s.podcast(w, r); found {
		s.savePodcast(w, r, p)
	}
}

func (s *Server) savePodcast(w http.ResponseWriter, r *http.Request, p *podcast.Podcast) {
	in, err := readInput(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	saved, err := s.Processor.SavePodcast(r.Context(), p, in, podcast.ModeFor(r.Method))
	if err != nil {
		fail(w, r, err)
		return
	}
	s.standalone(w, r, saved)
}

func (s *Server) deletePodcast(w http.ResponseWriter, r *http.Request) {
	p, found := s.podcast(w, r)
	if !found {
		return
	}
	if err := s.Processor.DeletePodcast(r.Context(), p.ID); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, nil)
}
