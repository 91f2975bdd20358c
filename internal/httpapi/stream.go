package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/kb"
	"github.com/signalsfoundry/groundtrack/model"
)

// DefaultStreamKeepalive is the keep-alive comment interval on the state
// stream.
const DefaultStreamKeepalive = 30 * time.Second

// catalogBuffer bounds catalogue events queued for a slow stream client;
// further events are dropped until it catches up.
const catalogBuffer = 64

type catalogEvent struct {
	Type      kb.EventType       `json:"type"`
	Satellite model.CatalogEntry `json:"satellite"`
}

// stream pushes UI state and catalogue changes as Server-Sent Events. The
// current state is sent first; after that only the latest pending state is
// delivered when the client falls behind.
func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.fail(w, r, errors.New("streaming not supported"))
		return
	}
	ctx := r.Context()
	log := logging.FromContext(ctx, h.deps.Log)

	states := make(chan session.UIState, 1)
	unsubscribe := h.deps.Controller.Subscribe(func(s session.UIState) {
		offerLatest(states, s)
	})
	defer unsubscribe()

	var catalog chan kb.Event
	if h.deps.Catalog != nil {
		catalog = make(chan kb.Event, catalogBuffer)
		unsubscribe := h.deps.Catalog.Subscribe(func(e kb.Event) {
			select {
			case catalog <- e:
			default:
			}
		})
		defer unsubscribe()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// The server write timeout must not cut a long-lived stream.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug(ctx, "could not clear write deadline", logging.Err(err))
	}

	if err := writeEvent(w, "state", h.deps.Controller.State()); err != nil {
		log.Warn(ctx, "stream send failed", logging.Err(err))
		return
	}
	flusher.Flush()
	log.Info(ctx, "state stream connected")
	defer log.Info(ctx, "state stream disconnected")

	interval := h.deps.StreamKeepalive
	if interval <= 0 {
		interval = DefaultStreamKeepalive
	}
	keepalive := time.NewTicker(interval)
	defer keepalive.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case s := <-states:
			err = writeEvent(w, "state", s)
		case e := <-catalog:
			err = writeEvent(w, "catalog", catalogEvent{Type: e.Type, Satellite: e.Satellite})
		case <-keepalive.C:
			_, err = io.WriteString(w, ":\n\n")
		}
		if err != nil {
			log.Warn(ctx, "stream send failed", logging.Err(err))
			return
		}
		flusher.Flush()
	}
}

// offerLatest queues s, replacing a state the reader has not taken yet. It
// never blocks the controller goroutine publishing the change.
func offerLatest(ch chan session.UIState, s session.UIState) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeEvent(w io.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
