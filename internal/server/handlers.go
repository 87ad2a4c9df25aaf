package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/importer"
	"github.com/grahms/segmentweaver/internal/render"
)

type renderRequest struct {
	Format   string                  `json:"format"`
	Document json.RawMessage         `json:"document"`
	Select   string                  `json:"select"`
	Policy   *render.PolicyOverrides `json:"policy"`
}

type validateRequest struct {
	Document     json.RawMessage `json:"document"`
	Select       string          `json:"select"`
	AllowUnknown bool            `json:"allowUnknown"`
}

// problem is the JSON form of one document error.
type problem struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Type    string `json:"type,omitempty"`
	ID      string `json:"id,omitempty"`
}

func problems(err error) []problem {
	var out []problem
	for _, e := range sw.Problems(err) {
		p := problem{Message: e.Error()}
		if at, ok := location(e); ok {
			p.Path, p.Type, p.ID = at.Path.String(), at.Type, at.ID
		}
		out = append(out, p)
	}
	return out
}

func location(err error) (sw.SegmentError, bool) {
	var (
		malformed  *sw.MalformedSegmentError
		unknownSeg *sw.UnknownSegmentTypeError
		unknownMod *sw.UnknownModifierTypeError
		unresolved *sw.UnresolvedModifierError
		invalid    *sw.ValidationError
		serializer *sw.SerializerError
	)
	switch {
	case errors.As(err, &malformed):
		return malformed.SegmentError, true
	case errors.As(err, &unknownSeg):
		return unknownSeg.SegmentError, true
	case errors.As(err, &unknownMod):
		return unknownMod.SegmentError, true
	case errors.As(err, &unresolved):
		return unresolved.SegmentError, true
	case errors.As(err, &invalid):
		return invalid.SegmentError, true
	case errors.As(err, &serializer):
		return serializer.SegmentError, true
	}
	return sw.SegmentError{}, false
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req renderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Document) == 0 {
		jsonError(w, "document is required", http.StatusBadRequest)
		return
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = render.FormatHTML
	}
	label := format
	if !slices.Contains(render.Formats, label) {
		label = "unknown"
	}

	start := time.Now()
	res, err := s.svc.Render(r.Context(), render.Request{
		Format:   format,
		Document: req.Document,
		Select:   req.Select,
		Policy:   req.Policy.Apply(s.cfg.Render.Policy()),
	})
	s.metrics.Duration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Renders.WithLabelValues(label, "error").Inc()
		switch {
		case errors.Is(err, render.ErrUnknownFormat):
			jsonError(w, err.Error(), http.StatusBadRequest)
		case render.IsDocumentError(err):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":    err.Error(),
				"problems": problems(err),
			})
		default:
			s.log.Error("render failed", "error", err)
			jsonError(w, "render failed", http.StatusInternalServerError)
		}
		return
	}

	s.metrics.Renders.WithLabelValues(label, "ok").Inc()
	s.metrics.Degraded.Add(float64(len(res.Degraded)))
	if res.Cached {
		s.metrics.CacheHits.Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req validateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Document) == 0 {
		jsonError(w, "document is required", http.StatusBadRequest)
		return
	}

	err := s.svc.Validate(req.Document, req.Select, sw.ValidateOptions{
		AllowUnknown: req.AllowUnknown,
		MaxDepth:     s.cfg.Render.MaxDepth,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	case errors.Is(err, render.ErrBadDocument):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "problems": problems(err)})
	}
}

// handleImport converts the raw request body. The source format comes from
// the "format" query parameter or the extension of "filename".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	var (
		imp importer.Importer
		err error
	)
	switch {
	case format != "":
		imp, err = importer.ForFormat(format)
	case r.URL.Query().Get("filename") != "":
		name := r.URL.Query().Get("filename")
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		imp, err = importer.ForFile(name)
	default:
		jsonError(w, "format or filename is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	segs, err := imp.Import(bytes.NewReader(data))
	if err != nil {
		s.metrics.Imports.WithLabelValues(format, "error").Inc()
		jsonError(w, "import failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.metrics.Imports.WithLabelValues(format, "ok").Inc()
	writeJSON(w, http.StatusOK, segs)
}
