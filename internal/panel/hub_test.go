package panel

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/matrix"
)

func TestEncodeDecode(t *testing.T) {
	var b matrix.Bitmap
	b.Set(matrix.Cell{Row: 2, Col: 5})
	f := frame.New(b, frame.Color{R: 0xff, G: 0xa0, B: 0x20})

	msg := Encode(0x09, f)
	if len(msg) != 12 || msg[0] != 0x09 {
		t.Fatalf("unexpected message % x", msg)
	}
	addr, got, err := Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x09 || got != f {
		t.Errorf("decoded %#02x %v, want 0x09 %v", addr, got, f)
	}

	if _, _, err := Decode(msg[:5]); !errors.Is(err, ErrShortMessage) {
		t.Errorf("expected ErrShortMessage, got %v", err)
	}
}

func TestSendNeverBlocks(t *testing.T) {
	h := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+36; i++ {
			h.Send(0x08, frame.Frame{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked without a running hub")
	}
	if h.Dropped() != 36 {
		t.Errorf("expected 36 dropped frames, got %d", h.Dropped())
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/panels"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(nil)
	go h.Run(ctx)

	conn := dial(t, h)
	waitFor(t, "client registration", func() bool { return h.Clients() == 1 })

	f := frame.New(matrix.Full(), frame.Color{R: 1, G: 2, B: 3})
	h.Send(0x08, f)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("expected binary message, got %d", kind)
	}
	addr, got, err := Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x08 || got != f {
		t.Errorf("got %#02x %v", addr, got)
	}
}

func TestLateClientReceivesLatestFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(nil)
	go h.Run(ctx)

	f := frame.New(matrix.Full(), frame.Color{G: 9})
	h.Send(0x09, f)
	waitFor(t, "broadcast drain", func() bool { return len(h.broadcast) == 0 })
	// Run may still be holding the message; give it a moment to record it.
	time.Sleep(20 * time.Millisecond)

	conn := dial(t, h)
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if addr, got, _ := Decode(msg); addr != 0x09 || got != f {
		t.Errorf("late client got %#02x %v", addr, got)
	}
}

func TestClientTiltBecomesReading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(nil)
	go h.Run(ctx)

	conn := dial(t, h)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"pitch":-50,"roll":3}`)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "remote tilt", func() bool { return h.Read().Pitch == -50 })
	if h.Read().Roll != 3 {
		t.Errorf("expected roll 3, got %v", h.Read().Roll)
	}
}

func TestHubShutdownDisconnectsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil)
	go h.Run(ctx)

	conn := dial(t, h)
	waitFor(t, "client registration", func() bool { return h.Clients() == 1 })
	cancel()
	waitFor(t, "client removal", func() bool { return h.Clients() == 0 })

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after shutdown")
	}
}
