// Package server exposes a caption.Captioner over the CaptionCraft HTTP API
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"captioncraft/caption"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxFormMemory is how much of a multipart body is buffered in memory before
// spilling to temp files
const maxFormMemory = 32 << 20

// maxBodySize leaves room for multipart framing on top of the image limit
const maxBodySize = caption.MaxFileSize + 1<<20

type Options struct {
	AllowedOrigins []string
	// RateLimit is "<count>/<second|minute|hour|day>"; empty disables limiting
	RateLimit string
	Logger    *slog.Logger
}

type Server struct {
	captioner caption.Captioner
	origins   []string
	limiter   *Limiter
	logger    *slog.Logger
}

func New(captioner caption.Captioner, opts Options) (*Server, error) {
	if captioner == nil {
		return nil, errors.New("captioner is required")
	}
	s := &Server{
		captioner: captioner,
		logger:    opts.Logger,
	}
	for _, o := range opts.AllowedOrigins {
		s.origins = append(s.origins, strings.TrimSuffix(o, "/"))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if opts.RateLimit != "" {
		r, err := ParseRate(opts.RateLimit)
		if err != nil {
			return nil, err
		}
		s.limiter = NewLimiter(r)
	}
	return s, nil
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         600,
	}))

	r.Get("/api/health", handleHealth)
	r.With(s.rateLimit).Post("/api/caption", s.handleCaption)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type captionResponse struct {
	Caption string       `json:"caption"`
	Tone    caption.Tone `json:"tone"`
}

func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpError(w, http.StatusBadRequest, "File too large. Maximum size is %d MB", caption.MaxFileSize/(1024*1024))
			return
		}
		missingField(w, "image")
		return
	}
	defer r.MultipartForm.RemoveAll()

	tone := caption.DefaultTone
	if v := r.FormValue("tone"); v != "" {
		tone = caption.Tone(v)
	}
	if !tone.Valid() {
		httpError(w, http.StatusBadRequest, "Invalid tone. Choose from: %s", strings.Join(caption.ToneNames(), ", "))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		missingField(w, "image")
		return
	}
	defer file.Close()

	mediaType := header.Header.Get("Content-Type")
	data, err := io.ReadAll(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read image: %v", err)
		return
	}
	// type, then size, then empty
	if err := caption.ValidateUpload(mediaType, int64(len(data))); err != nil {
		httpError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	img := &caption.Image{Name: header.Filename, MediaType: mediaType, Data: data}
	text, err := s.captioner.Generate(r.Context(), img, tone)
	if err != nil {
		s.logger.Error("caption generation failed", "error", err, "tone", tone, "bytes", len(data))
		httpError(w, http.StatusInternalServerError, "Caption generation failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, captionResponse{Caption: text, Tone: tone})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// httpError writes {"detail": msg}
func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// missingField writes a 422 validation error listing the absent form field
func missingField(w http.ResponseWriter, field string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{
		"detail": {{Loc: []string{"body", field}, Msg: "Field required", Type: "missing"}},
	})
}
