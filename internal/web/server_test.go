package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeController struct {
	mu       sync.Mutex
	resets   []bool
	mode     string
	resetErr error
	modeErr  error
}

func (c *fakeController) ResetOrigin(immediate bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetErr != nil {
		return c.resetErr
	}
	c.resets = append(c.resets, immediate)
	return nil
}

func (c *fakeController) SetMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modeErr != nil {
		return c.modeErr
	}
	c.mode = mode
	return nil
}

func TestAPIStatus(t *testing.T) {
	st := NewStatus()
	st.SetStatic("sim", "90°")
	st.SetTier("rotation-vector")
	st.SetMode("absolute")
	st.SetTracking(true)
	st.SetOrientation(time.Now().UTC(), OrientationSnapshot{Valid: true, YawDeg: 12.5})

	ts := httptest.NewServer(Handler(st, nil, nil, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var snap StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if snap.Service != "tiltd" {
		t.Fatalf("service=%q", snap.Service)
	}
	if !snap.Tracking || snap.Tier != "rotation-vector" || snap.Source != "sim" {
		t.Fatalf("snapshot=%+v", snap)
	}
	if !snap.Orientation.Valid || snap.Orientation.YawDeg != 12.5 {
		t.Fatalf("orientation=%+v", snap.Orientation)
	}
}

func TestAPIOriginReset(t *testing.T) {
	ctl := &fakeController{}
	ts := httptest.NewServer(Handler(NewStatus(), nil, nil, ctl))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/tilt/origin/reset?immediate=true", "", nil)
	if err != nil {
		t.Fatalf("post reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	resp, err = http.Post(ts.URL+"/api/tilt/origin/reset", "", nil)
	if err != nil {
		t.Fatalf("post reset: %v", err)
	}
	resp.Body.Close()

	ctl.mu.Lock()
	resets := append([]bool(nil), ctl.resets...)
	ctl.mu.Unlock()
	if len(resets) != 2 || !resets[0] || resets[1] {
		t.Fatalf("resets=%v want [true false]", resets)
	}

	// GET is rejected.
	resp, err = http.Get(ts.URL + "/api/tilt/origin/reset")
	if err != nil {
		t.Fatalf("get reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code=%d want 405", resp.StatusCode)
	}
}

func TestAPIOriginResetConflict(t *testing.T) {
	ctl := &fakeController{resetErr: errors.New("tilt: not tracking")}
	ts := httptest.NewServer(Handler(NewStatus(), nil, nil, ctl))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/tilt/origin/reset", "", nil)
	if err != nil {
		t.Fatalf("post reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status code=%d want 409", resp.StatusCode)
	}
}

func TestAPIMode(t *testing.T) {
	ctl := &fakeController{}
	st := NewStatus()
	ts := httptest.NewServer(Handler(st, nil, nil, ctl))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/tilt/mode", "application/json",
		strings.NewReader(`{"mode":"relative"}`))
	if err != nil {
		t.Fatalf("post mode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	ctl.mu.Lock()
	mode := ctl.mode
	ctl.mu.Unlock()
	if mode != "relative" {
		t.Fatalf("mode=%q want relative", mode)
	}
	if got := st.Snapshot(time.Now()).Mode; got != "relative" {
		t.Fatalf("status mode=%q want relative", got)
	}

	ctl.modeErr = errors.New("bad mode")
	resp, err = http.Post(ts.URL+"/api/tilt/mode", "application/json",
		strings.NewReader(`{"mode":"sideways"}`))
	if err != nil {
		t.Fatalf("post mode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code=%d want 400", resp.StatusCode)
	}
}

func TestWebSocketStream(t *testing.T) {
	b := NewTiltBroadcaster()
	ts := httptest.NewServer(Handler(NewStatus(), b, nil, nil))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/tilt/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	b.Publish(OrientationSnapshot{Valid: true, YawDeg: 42})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var o OrientationSnapshot
	if err := conn.ReadJSON(&o); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !o.Valid || o.YawDeg != 42 {
		t.Fatalf("snapshot=%+v", o)
	}
}

func TestRootPage(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(), nil, nil, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("status code=%d want 404", resp2.StatusCode)
	}
}
