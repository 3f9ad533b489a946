package rest

import (
	"errors"
	"net/http"

	"podcastapi/internal/app/podcastapi/podcast"
	"podcastapi/internal/app/podcastapi/proc"
)

func (s *Server) episode(w http.ResponseWriter, r *http.Request) (*podcast.Episode, bool) {
	id, valid := idOf(r)
	if !valid {
		notFound(w)
		return nil, false
	}
	ep, err := s.Processor.Storage.GetEpisode(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return ep, true
}

func (s *Server) listEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.Processor.Storage.ListEpisodes(r.Context(), pageOf(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, podcast.NormalizeEpisodes(episodes))
}

func (s *Server) viewEpisode(w http.ResponseWriter, r *http.Request) {
	if ep, found := s.episode(w, r); found {
		ok(w, podcast.NormalizeEpisode(ep))
	}
}

func (s *Server) createEpisode(w http.ResponseWriter, r *http.Request) {
	s.saveEpisode(w, r, &podcast.Episode{})
}

func (s *Server) updateEpisode(w http.ResponseWriter, r *http.Request) {
	if ep, found := s.episode(w, r); found {
		s.saveEpisode(w, r, ep)
	}
}

func (s *Server) saveEpisode(w http.ResponseWriter, r *http.Request, ep *podcast.Episode) {
	in, err := readInput(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	saved, err := s.Processor.SaveEpisode(r.Context(), ep, in, podcast.ModeFor(r.Method))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, podcast.NormalizeEpisode(saved))
}

func (s *Server) uploadEpisode(w http.ResponseWriter, r *http.Request) {
	ep, found := s.episode(w, r)
	if !found {
		return
	}

	if s.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)
	}
	var upload *proc.File
	file, header, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, envelope{Errors: []string{"File Too Large"}})
		return
	case err == nil:
		defer file.Close()
		upload = &proc.File{Name: header.Filename, Size: header.Size, Content: file}
	}

	saved, err := s.Processor.Upload(r.Context(), ep, upload)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, podcast.NormalizeEpisode(saved))
}

func (s *Server) deleteEpisode(w http.ResponseWriter, r *http.Request) {
	ep, found := s.episode(w, r)
	if !found {
		return
	}
	if err := s.Processor.DeleteEpisode(r.Context(), ep); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, nil)
}

// downloadEpisode records the download and sends the client to the file
func (s *Server) downloadEpisode(w http.ResponseWriter, r *http.Request) {
	ep, found := s.episode(w, r)
	if !found {
		return
	}
	if ep.DownloadURL == nil {
		writeJSON(w, http.StatusOK, envelope{Errors: []string{"No File"}})
		return
	}
	s.Processor.RecordDownload(ep)
	http.Redirect(w, r, *ep.DownloadURL, http.StatusFound)
}

func (s *Server) episodeDownloads(w http.ResponseWriter, r *http.Request) {
	ep, found := s.episode(w, r)
	if !found {
		return
	}
	downloads, err := s.Processor.Storage.DownloadsOf(r.Context(), ep.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, podcast.NormalizeDownloads(downloads))
}
