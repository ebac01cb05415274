// Package api exposes the HTTP control surface: recording intents,
// overlay adjustments, state inspection, and the pointer gesture
// websocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/omnirec/omnirec/pkg/capture"
	"github.com/omnirec/omnirec/pkg/config"
	"github.com/omnirec/omnirec/pkg/logger"
	"github.com/omnirec/omnirec/pkg/overlay"
	"github.com/omnirec/omnirec/pkg/session"
)

// Border width and zoom limits accepted by the control surface.
const (
	MaxBorderWidth = 20.0
	MinZoom        = 1.0
	MaxZoom        = 3.0
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Control struct {
	conf       config.Control
	log        *logger.Logger
	session    *session.Session
	store      *overlay.Store
	controller *overlay.Controller
	server     *http.Server
	upgrader   websocket.Upgrader
}

func NewControl(conf config.Control, s *session.Session, store *overlay.Store, ctrl *overlay.Controller, log *logger.Logger) *Control {
	c := &Control{
		conf:       conf,
		log:        log,
		session:    s,
		store:      store,
		controller: ctrl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/recording/start", c.handleStart)
	r.Post("/recording/stop", c.handleStop)
	r.Get("/recording", c.handleDownload)
	r.Get("/preview", c.handlePreview)
	r.Get("/state", c.handleState)
	r.Post("/overlay/shape", c.handleToggleShape)
	r.Post("/overlay/visibility", c.handleToggleVisibility)
	r.Post("/overlay/border/color", c.handleBorderColor)
	r.Post("/overlay/border/width", c.handleBorderWidth)
	r.Post("/overlay/zoom", c.handleZoom)
	r.Get("/pointer", c.handlePointer)

	c.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", conf.Port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}
	return c
}

func (c *Control) Run() {
	c.log.Info().Msgf("control server on %v", c.server.Addr)
	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error().Err(err).Msg("control server failed")
		}
	}()
}

func (c *Control) Shutdown(ctx context.Context) error { return c.server.Shutdown(ctx) }

type stateResponse struct {
	State        string         `json:"state"`
	HasRecording bool           `json:"hasRecording"`
	Error        string         `json:"error,omitempty"`
	Overlay      overlay.Config `json:"overlay"`
}

func (c *Control) state() stateResponse {
	resp := stateResponse{
		State:        c.session.State().String(),
		HasRecording: c.session.HasRecording(),
		Overlay:      c.store.Load(),
	}
	if err := c.session.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (c *Control) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.state())
}

func (c *Control) handleStart(w http.ResponseWriter, _ *http.Request) {
	err := c.session.Start()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, c.state())
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, c.state())
	case errors.Is(err, capture.ErrDenied):
		writeJSON(w, http.StatusForbidden, c.state())
	default:
		writeJSON(w, http.StatusBadGateway, c.state())
	}
}

func (c *Control) handleStop(w http.ResponseWriter, _ *http.Request) {
	c.session.Stop()
	writeJSON(w, http.StatusOK, c.state())
}

func (c *Control) handleDownload(w http.ResponseWriter, _ *http.Request) {
	a := c.session.Artifact()
	if a == nil {
		http.Error(w, "no recording available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.WriteHeader(http.StatusOK)
	// Segments stream out in arrival order; their concatenation is the
	// container.
	_, _ = w.Write(a.Bytes())
}

// handlePreview serves the latest composed frame as PNG.
func (c *Control) handlePreview(w http.ResponseWriter, _ *http.Request) {
	frame := c.session.Surface()
	if frame == nil {
		http.Error(w, "no frame composed yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, frame); err != nil {
		c.log.Error().Err(err).Msg("preview encode failed")
	}
}

func (c *Control) handleToggleShape(w http.ResponseWriter, _ *http.Request) {
	conf := c.store.Update(func(o *overlay.Config) {
		if o.Shape == overlay.Circle {
			o.Shape = overlay.Rectangle
		} else {
			o.Shape = overlay.Circle
		}
	})
	writeJSON(w, http.StatusOK, conf)
}

func (c *Control) handleToggleVisibility(w http.ResponseWriter, _ *http.Request) {
	conf := c.store.Update(func(o *overlay.Config) { o.Visible = !o.Visible })
	writeJSON(w, http.StatusOK, conf)
}

func (c *Control) handleBorderColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !hexColor.MatchString(req.Color) {
		http.Error(w, "color must be #rrggbb", http.StatusBadRequest)
		return
	}
	conf := c.store.Update(func(o *overlay.Config) { o.BorderColor = req.Color })
	writeJSON(w, http.StatusOK, conf)
}

func (c *Control) handleBorderWidth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width float64 `json:"width"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Width < 0 || req.Width > MaxBorderWidth {
		http.Error(w, fmt.Sprintf("width must be in [0, %v]", MaxBorderWidth), http.StatusBadRequest)
		return
	}
	conf := c.store.Update(func(o *overlay.Config) { o.BorderWidth = req.Width })
	writeJSON(w, http.StatusOK, conf)
}

func (c *Control) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom float64 `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Zoom < MinZoom || req.Zoom > MaxZoom {
		http.Error(w, fmt.Sprintf("zoom must be in [%v, %v]", MinZoom, MaxZoom), http.StatusBadRequest)
		return
	}
	conf := c.store.Update(func(o *overlay.Config) { o.Zoom = req.Zoom })
	writeJSON(w, http.StatusOK, conf)
}

// pointerEvent is one message on the gesture websocket. Coordinates are
// container pixels. The bounds travel with the down event so gestures
// stay consistent if the container is resized mid-drag.
type pointerEvent struct {
	Type   string  `json:"type"` // down, move, up
	Mode   string  `json:"mode"` // drag, resize
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Bounds struct {
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"bounds"`
}

func (c *Control) handlePointer(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("pointer socket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var ev pointerEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("pointer socket closed")
			}
			c.controller.PointerUp()
			return
		}
		p := overlay.Pointer{X: ev.X, Y: ev.Y}
		switch ev.Type {
		case "down":
			mode := overlay.ModeDrag
			if ev.Mode == "resize" {
				mode = overlay.ModeResize
			}
			c.controller.BeginGesture(p, mode, overlay.Bounds{W: ev.Bounds.W, H: ev.Bounds.H})
		case "move":
			c.controller.PointerMove(p)
		case "up":
			c.controller.PointerUp()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
