package control

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T, c Controller, opts ...ServerOption) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(c, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) = %v", url, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) Response {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON() = %v", err)
	}
	return resp
}

func TestServerCommands(t *testing.T) {
	c := newFakeController()
	_, ts := newTestServer(t, c)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, `{"id":"1","cmd":"start_live_view"}`)
	if !resp.OK || resp.ID != "1" {
		t.Fatalf("start response = %+v", resp)
	}
	resp = roundTrip(t, conn, `{"id":"2","cmd":"set_min_threshold","args":{"newMinThreshold":15}}`)
	if !resp.OK {
		t.Fatalf("set_min_threshold response = %+v", resp)
	}

	resp = roundTrip(t, conn, `{"id":"3","cmd":"state"}`)
	st, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("state result = %#v", resp.Result)
	}
	if st["playing"] != true || st["minThreshold"] != float64(15) || st["maxThreshold"] != float64(100) {
		t.Errorf("state = %v, want playing with {15 100}", st)
	}

	resp = roundTrip(t, conn, `{"id":"4","cmd":"greet","args":{"name":"liveview"}}`)
	if resp.Result != "Hello, liveview! You've been greeted from Go!" {
		t.Errorf("greet result = %v", resp.Result)
	}

	resp = roundTrip(t, conn, `{"id":"5","cmd":"stop_live_view"}`)
	if !resp.OK || c.Playing() {
		t.Errorf("stop response = %+v, playing = %v", resp, c.Playing())
	}
}

func TestServerMalformedRequest(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())
	conn := dial(t, ts)

	resp := roundTrip(t, conn, `{not json`)
	if resp.OK || !strings.HasPrefix(resp.Error, ErrBadRequest.Error()) {
		t.Errorf("response = %+v, want malformed request error", resp)
	}

	// The connection survives a bad message.
	resp = roundTrip(t, conn, `{"id":"ok","cmd":"state"}`)
	if !resp.OK {
		t.Errorf("response after malformed request = %+v", resp)
	}
}

func TestServerShutdownClosesConnections(t *testing.T) {
	s, ts := newTestServer(t, newFakeController())
	conn := dial(t, ts)
	roundTrip(t, conn, `{"id":"1","cmd":"state"}`)

	if n := s.Connections(); n != 1 {
		t.Fatalf("Connections() = %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if n := s.Connections(); n != 0 {
		t.Errorf("Connections() after Shutdown = %d, want 0", n)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage() after Shutdown succeeded")
	}
}

func TestServerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liveview_frames_rendered_total",
		Help: "test",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	_, ts := newTestServer(t, newFakeController(), WithGatherer(reg))
	body := get(t, ts.URL+"/metrics")
	if !strings.Contains(body, "liveview_frames_rendered_total 3") {
		t.Errorf("/metrics body missing counter:\n%s", body)
	}
}

func TestServerHealth(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())
	if body := get(t, ts.URL+"/healthz"); body != "ok\n" {
		t.Errorf("/healthz = %q, want %q", body, "ok\n")
	}
}

// fakeDevice is a DeviceProvider without a GPU.
type fakeDevice struct{}

func (fakeDevice) Device() gpucontext.Device   { return nil }
func (fakeDevice) Queue() gpucontext.Queue     { return nil }
func (fakeDevice) Adapter() gpucontext.Adapter { return nil }
func (fakeDevice) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}
func (fakeDevice) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "Test GPU", Type: gpucontext.AdapterTypeDiscrete}
}

func TestServerInfo(t *testing.T) {
	c := newFakeController()
	c.playing = true
	_, ts := newTestServer(t, c, WithDevice(DeviceOf(fakeDevice{})))

	var info Info
	if err := json.Unmarshal([]byte(get(t, ts.URL+"/info")), &info); err != nil {
		t.Fatalf("decode /info: %v", err)
	}
	want := Info{
		Adapter:       "Test GPU",
		AdapterType:   gpucontext.AdapterTypeDiscrete.String(),
		SurfaceFormat: gputypes.TextureFormatBGRA8Unorm.String(),
		Playing:       true,
	}
	if info != want {
		t.Errorf("/info = %+v, want %+v", info, want)
	}
}

// resizingDevice changes its surface format without any lock, the way a
// GPU context does when the render loop reconfigures it.
type resizingDevice struct {
	fakeDevice
	format gputypes.TextureFormat
}

func (d *resizingDevice) SurfaceFormat() gputypes.TextureFormat { return d.format }

func TestServerInfoDoesNotReadDevice(t *testing.T) {
	dev := &resizingDevice{format: gputypes.TextureFormatBGRA8Unorm}
	c := newFakeController()
	_, ts := newTestServer(t, c, WithDevice(DeviceOf(dev)))

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				dev.format = gputypes.TextureFormatRGBA8Unorm
			} else {
				dev.format = gputypes.TextureFormatBGRA8Unorm
			}
			_ = c.StartLiveView()
		}
	}()

	for range 20 {
		var info Info
		if err := json.Unmarshal([]byte(get(t, ts.URL+"/info")), &info); err != nil {
			t.Fatalf("decode /info: %v", err)
		}
		if info.SurfaceFormat != gputypes.TextureFormatBGRA8Unorm.String() {
			t.Errorf("surfaceFormat = %q, want the format captured at start", info.SurfaceFormat)
		}
	}
	close(done)
	<-stopped
}

func TestServerInfoWithoutDevice(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	var info Info
	if err := json.Unmarshal([]byte(get(t, ts.URL+"/info")), &info); err != nil {
		t.Fatalf("decode /info: %v", err)
	}
	if info != (Info{}) {
		t.Errorf("/info = %+v, want empty", info)
	}
}

func TestServerRejectsPlainHTTPOnWS(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())
	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET /ws status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := NewServer(newFakeController())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx, addr) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("ListenAndServe() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s = %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(b)
}

type fixedSnapshot struct{ img *image.RGBA }

func (f fixedSnapshot) Snapshot() *image.RGBA { return f.img }

func TestServerSnapshot(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	_, ts := newTestServer(t, newFakeController(), WithSnapshotter(fixedSnapshot{img}))

	decoded, err := png.Decode(bytes.NewReader([]byte(get(t, ts.URL+"/snapshot.png"))))
	if err != nil {
		t.Fatalf("decode /snapshot.png: %v", err)
	}
	if decoded.Bounds() != img.Rect {
		t.Fatalf("snapshot bounds = %v, want %v", decoded.Bounds(), img.Rect)
	}
	r, g, b, a := decoded.At(2, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("pixel = %d %d %d %d, want 10 20 30 255", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestServerNoSnapshotEndpointByDefault(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())
	resp, err := http.Get(ts.URL + "/snapshot.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
