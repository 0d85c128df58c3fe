package main

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/bbiangul/moldstamp/dial"
)

// handler serves dial previews. The renderer is shared and guarded by mu.
type handler struct {
	mu       sync.Mutex
	renderer *dial.Renderer
}

func newHandler(r *dial.Renderer) *handler {
	return &handler{renderer: r}
}

// dateParams reads the year and month query parameters.
func dateParams(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	year, err = strconv.Atoi(q.Get("year"))
	if err != nil {
		return 0, 0, fmt.Errorf("year must be an integer")
	}
	month, err = strconv.Atoi(q.Get("month"))
	if err != nil {
		return 0, 0, fmt.Errorf("month must be an integer")
	}
	return year, month, nil
}

// GET /render?year=&month=[&angle=]
func (h *handler) handleRender(w http.ResponseWriter, r *http.Request) {
	year, month, err := dateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var angle *float64
	if a := r.URL.Query().Get("angle"); a != "" {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, http.StatusBadRequest, "angle must be a number")
			return
		}
		angle = &v
	}

	img, err := h.render(year, month, angle)
	if err != nil {
		if errors.Is(err, dial.ErrInvalidMonth) || errors.Is(err, dial.ErrInvalidOptions) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "render failed")
		slog.Error("render error", "year", year, "month", month, "error", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := dial.Encode(w, img); err != nil {
		slog.Error("encoding png", "error", err)
	}
}

// render draws one dial; a nil angle draws the rotation at random.
func (h *handler) render(year, month int, angle *float64) (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if angle != nil {
		return h.renderer.RenderAt(year, month, *angle)
	}
	return h.renderer.Render(year, month)
}

// GET /layout?year=&month=
func (h *handler) handleLayout(w http.ResponseWriter, r *http.Request) {
	year, month, err := dateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := h.renderer.Layout(year, month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":     year,
		"month":    month,
		"font":     h.renderer.Fonts().Name(),
		"geometry": g,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		slog.Error("marshaling response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
