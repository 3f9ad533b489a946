// Package rest exposes podcasts and episodes over json endpoints.
// Every response is an envelope {success, result, errors}.
package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"

	"podcastapi/internal/app/podcastapi/podcast"
	"podcastapi/internal/app/podcastapi/proc"
)

const maxInputSize = 1 << 20

// Server routes http requests to the processor
type Server struct {
	Processor      *proc.Processor
	RequestTimeout time.Duration
	MaxUploadSize  int64
}

type envelope struct {
	Success bool     `json:"success"`
	Result  any      `json:"result"`
	Errors  []string `json:"errors,omitempty"`
}

// Handler makes the routing handler. All routes except upload are limited by RequestTimeout.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", s.timed(s.health))

	mux.Handle("GET /episode/{$}", s.timed(s.listEpisodes))
	mux.Handle("GET /episode/{id}", s.timed(s.viewEpisode))
	mux.Handle("POST /episode/create", s.timed(s.createEpisode))
	mux.Handle("PUT /episode/{id}/update", s.timed(s.updateEpisode))
	mux.HandleFunc("POST /episode/{id}/upload", s.uploadEpisode)
	mux.Handle("DELETE /episode/{id}/delete", s.timed(s.deleteEpisode))
	mux.Handle("GET /episode/{id}/download", s.timed(s.downloadEpisode))
	mux.Handle("GET /episode/{id}/downloads", s.timed(s.episodeDownloads))

	mux.Handle("GET /podcast/{$}", s.timed(s.listPodcasts))
	mux.Handle("GET /podcast/{id}", s.timed(s.viewPodcast))
	mux.Handle("POST /podcast/create", s.timed(s.createPodcast))
	mux.Handle("PUT /podcast/{id}/update", s.timed(s.updatePodcast))
	mux.Handle("DELETE /podcast/{id}/delete", s.timed(s.deletePodcast))

	mux.HandleFunc("GET /files/{key...}", s.serveFile)

	return logRequests(mux)
}

func (s *Server) timed(h http.HandlerFunc) http.Handler {
	if s.RequestTimeout <= 0 {
		return h
	}
	return http.TimeoutHandler(h, s.RequestTimeout, `{"success":false,"result":null,"errors":["Timeout"]}`)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: map[string]string{"status": "ok"}})
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	rc, info, err := s.Processor.Files.Open(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, proc.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		log.Printf("[WARN] can't open file %s, %v", r.PathValue("key"), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("[WARN] failed to write file %s, %v", r.PathValue("key"), err)
	}
}

// readInput parses the request body in the format of its content type
func readInput(w http.ResponseWriter, r *http.Request) (podcast.Input, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputSize))
	if err != nil {
		return nil, &proc.ValidationError{Messages: []string{"Invalid request body"}}
	}
	in, err := podcast.ParseInput(podcast.FormatOf(r.Header.Get("Content-Type")), body)
	if err != nil {
		return nil, &proc.ValidationError{Messages: []string{"Invalid request body"}}
	}
	return in, nil
}

func pageOf(r *http.Request) proc.Page {
	number, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return proc.NewPage(number, limit)
}

func idOf(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func ok(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: result})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, envelope{Errors: []string{"Not Found"}})
}

// fail maps processor errors to responses, validation errors are reported with 200
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *proc.ValidationError
	var serr *proc.StorageError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusOK, envelope{Errors: verr.Messages})
	case errors.Is(err, proc.ErrNotFound):
		notFound(w)
	case errors.As(err, &serr):
		log.Printf("[ERROR] %s %s, %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Errors: []string{"Unable to store file"}})
	default:
		log.Printf("[ERROR] %s %s, %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Errors: []string{"Internal Error"}})
	}
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] failed to encode response, %v", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("[INFO] %s %s -> %d (%dB) in %s", r.Method, r.URL.Path, sw.status, sw.size, time.Since(start))
	})
}
