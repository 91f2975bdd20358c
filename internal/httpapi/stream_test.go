package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/model"
)

type sseReader struct {
	t  *testing.T
	br *bufio.Reader
}

// next returns the name and data of the next event, skipping comments.
func (s *sseReader) next() (string, string) {
	s.t.Helper()
	var name, data string
	for {
		line, err := s.br.ReadString('\n')
		if err != nil {
			s.t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func (s *sseReader) nextState() session.UIState {
	s.t.Helper()
	for {
		name, data := s.next()
		if name != "state" {
			continue
		}
		var st session.UIState
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			s.t.Fatalf("decode state %q: %v", data, err)
		}
		return st
	}
}

func openStream(t *testing.T, ts *testServer) *sseReader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.srv.URL+"/api/state/stream", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	return &sseReader{t: t, br: bufio.NewReader(resp.Body)}
}

func TestStateStreamFollowsSelection(t *testing.T) {
	ts := newTestServer(t)
	stream := openStream(t, ts)

	if st := stream.nextState(); st.State != model.Idle {
		t.Fatalf("first event state = %v, want idle", st.State)
	}

	if resp := ts.post(t, "/api/selection", validSelection); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("selection: %d", resp.StatusCode)
	}
	for {
		st := stream.nextState()
		if st.State == model.Drawing {
			if st.Animation.Tracks != 2 {
				t.Fatalf("drawing state with %d tracks", st.Animation.Tracks)
			}
			return
		}
	}
}

func TestStateStreamCarriesCatalogChanges(t *testing.T) {
	ts := newTestServer(t)
	stream := openStream(t, ts)
	stream.nextState()

	if resp := ts.post(t, "/api/satellites", `{"satid":33591,"satname":"NOAA 19"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add satellite: %d", resp.StatusCode)
	}
	name, data := stream.next()
	if name != "catalog" {
		t.Fatalf("event = %q, want catalog", name)
	}
	var ev struct {
		Type      string             `json:"type"`
		Satellite model.CatalogEntry `json:"satellite"`
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if ev.Type != "added" || ev.Satellite.ID != 33591 || ev.Satellite.Name != "NOAA 19" {
		t.Fatalf("unexpected catalog event %+v", ev)
	}
}

func TestOfferLatestKeepsNewestState(t *testing.T) {
	ch := make(chan session.UIState, 1)
	offerLatest(ch, session.UIState{State: model.Loading})
	offerLatest(ch, session.UIState{State: model.Drawing})

	if got := (<-ch).State; got != model.Drawing {
		t.Fatalf("queued state = %v, want drawing", got)
	}
	select {
	case s := <-ch:
		t.Fatalf("unexpected extra state %+v", s)
	default:
	}
}

func TestCatalogWrites(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "add", method: http.MethodPost, path: "/api/satellites", body: `{"satid":33591,"satname":"NOAA 19"}`, want: http.StatusCreated},
		{name: "add duplicate", method: http.MethodPost, path: "/api/satellites", body: `{"satid":25544,"satname":"ISS"}`, want: http.StatusConflict},
		{name: "add malformed", method: http.MethodPost, path: "/api/satellites", body: `{"satid":`, want: http.StatusBadRequest},
		{name: "add bad elements", method: http.MethodPost, path: "/api/satellites", body: `{"satid":1,"satname":"X","line1":"junk","line2":"junk"}`, want: http.StatusBadRequest},
		{name: "remove", method: http.MethodDelete, path: "/api/satellites/20580", want: http.StatusNoContent},
		{name: "remove unknown", method: http.MethodDelete, path: "/api/satellites/20580", want: http.StatusNotFound},
		{name: "remove bad id", method: http.MethodDelete, path: "/api/satellites/abc", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, ts.srv.URL+tc.path, strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("%s: NewRequest: %v", tc.name, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}

	if resp := ts.get(t, "/api/satellites/33591"); resp.StatusCode != http.StatusOK {
		t.Fatalf("added satellite lookup: %d", resp.StatusCode)
	}
	if resp := ts.get(t, "/api/satellites/20580"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("removed satellite lookup: %d", resp.StatusCode)
	}
}
