package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/render"
	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/model"
)

const maxSelectionBytes = 1 << 20

type handlers struct {
	deps Deps
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// SelectionResponse describes the animation a selection started.
type SelectionResponse struct {
	SessionID   string    `json:"session_id"`
	Tracks      int       `json:"tracks"`
	Length      int       `json:"length"`
	FrameStride int       `json:"frame_stride"`
	StartedAt   time.Time `json:"started_at"`
}

type healthResponse struct {
	Status          string `json:"status"`
	BaseMapRendered bool   `json:"base_map_rendered"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ready := h.deps.Ready != nil && h.deps.Ready()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", BaseMapRendered: ready})
}

func (h *handlers) selection(w http.ResponseWriter, r *http.Request) {
	var sel session.Selection
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBytes))
	if err := dec.Decode(&sel); err != nil {
		h.fail(w, r, fmt.Errorf("%w: decode selection: %v", ErrBadRequest, err))
		return
	}
	h.fillNames(&sel)

	sess, err := h.deps.Controller.Select(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SelectionResponse{
		SessionID:   sess.ID.String(),
		Tracks:      len(sess.Tracks),
		Length:      sess.Length,
		FrameStride: sess.FrameStride,
		StartedAt:   sess.StartedAt,
	})
}

// fillNames completes satellites picked by id only from the catalogue, so
// their labels carry the catalogue name.
func (h *handlers) fillNames(sel *session.Selection) {
	if h.deps.Catalog == nil {
		return
	}
	for i, s := range sel.Satellites {
		if s.Name != "" {
			continue
		}
		if entry, ok := h.deps.Catalog.GetSatellite(s.ID); ok {
			sel.Satellites[i].Name = entry.Name
		}
	}
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Controller.State())
}

func (h *handlers) satellites(w http.ResponseWriter, r *http.Request) {
	out := []model.CatalogEntry{}
	if h.deps.Catalog != nil {
		out = h.deps.Catalog.ListSatellites()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) satellite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: satellite id %q", ErrBadRequest, chi.URLParam(r, "id")))
		return
	}
	if h.deps.Catalog != nil {
		if entry, ok := h.deps.Catalog.GetSatellite(id); ok {
			writeJSON(w, http.StatusOK, entry)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("satellite %d not found", id)})
}

func (h *handlers) addSatellite(w http.ResponseWriter, r *http.Request) {
	var entry model.CatalogEntry
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBytes))
	if err := dec.Decode(&entry); err != nil {
		h.fail(w, r, fmt.Errorf("%w: decode satellite: %v", ErrBadRequest, err))
		return
	}
	if err := h.deps.Catalog.AddSatellite(entry); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *handlers) removeSatellite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: satellite id %q", ErrBadRequest, chi.URLParam(r, "id")))
		return
	}
	if err := h.deps.Catalog.RemoveSatellite(id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) frame(w http.ResponseWriter, r *http.Request) {
	if h.deps.Base == nil || h.deps.Overlay == nil {
		http.Error(w, "surfaces not configured", http.StatusServiceUnavailable)
		return
	}
	h.writeImage(w, r, render.Compose(h.deps.Base, h.deps.Overlay))
}

func (h *handlers) layer(c *render.Canvas) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			http.Error(w, "surface not configured", http.StatusServiceUnavailable)
			return
		}
		h.writeImage(w, r, c.Snapshot())
	}
}

func (h *handlers) writeImage(w http.ResponseWriter, r *http.Request, img image.Image) {
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, img); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// fail writes err with its mapped status. Rejections while an animation is
// drawing are expected and carry the hint shown to the user.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	log := logging.FromContext(r.Context(), h.deps.Log)

	switch {
	case errors.Is(err, session.ErrConcurrentSession):
		resp.Hint = h.deps.Controller.State().Hint
		log.Info(r.Context(), "selection dropped while drawing")
	case code < http.StatusInternalServerError:
		log.Warn(r.Context(), "request rejected", logging.Int("status_code", code), logging.Err(err))
	default:
		log.Error(r.Context(), "request failed", logging.Int("status_code", code), logging.Err(err))
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
