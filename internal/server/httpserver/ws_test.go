package httpserver

import (
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/snapfold-go/internal/registry"
)

func dialWS(t *testing.T, ts *testStack, cookie *http.Cookie) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	header := http.Header{}
	if cookie != nil {
		header.Set("Cookie", cookie.String())
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial: %v (resp: %+v)", err, resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) registry.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event registry.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return event
}

func TestWS_RejectsUnauthenticated(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("unauthenticated dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}
	resp.Body.Close()
}

func TestWS_ConnectEvent(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())
	cookie := signup(t, ts, "test")

	conn := dialWS(t, ts, cookie)
	event := readEvent(t, conn)

	if event.Action != "connect" {
		t.Fatalf("first event action = %q, want connect", event.Action)
	}
	folder, ok := event.Info["folder"].(map[string]any)
	if !ok {
		t.Fatalf("connect info has no folder: %+v", event.Info)
	}
	if folder["identity"] != "a94a8fe5cc" {
		t.Errorf("folder identity = %v", folder["identity"])
	}
	if event.Info["name"] == "" {
		t.Error("connect event carries no sender name")
	}
}

func TestWS_SendBroadcast(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())
	cookie := signup(t, ts, "test")

	sender := dialWS(t, ts, cookie)
	receiver := dialWS(t, ts, cookie)
	readEvent(t, sender)   // connect
	readEvent(t, receiver) // connect

	if err := sender.WriteJSON(clientCommand{Action: "send", Data: "hello everyone"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"sender": sender, "receiver": receiver} {
		event := readEvent(t, conn)
		if event.Action != "send" {
			t.Fatalf("%s event action = %q, want send", name, event.Action)
		}
		if len(event.Msgs) != 1 || event.Msgs[0].Data != "hello everyone" {
			t.Fatalf("%s msgs = %+v", name, event.Msgs)
		}
	}
}

func TestWS_Pull(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())
	cookie := signup(t, ts, "test")

	conn := dialWS(t, ts, cookie)
	readEvent(t, conn) // connect

	for _, text := range []string{"one", "two", "three"} {
		if err := conn.WriteJSON(clientCommand{Action: "send", Data: text}); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		readEvent(t, conn) // own broadcast
	}

	if err := conn.WriteJSON(clientCommand{Action: "pull", Offset: 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	event := readEvent(t, conn)
	if event.Action != "send" {
		t.Fatalf("pull reply action = %q, want send", event.Action)
	}
	if len(event.Msgs) != 2 || event.Msgs[0].Data != "two" || event.Msgs[1].Data != "three" {
		t.Fatalf("pull reply msgs = %+v", event.Msgs)
	}
}

func TestWS_ErrorEvent(t *testing.T) {
	cfg := defaultSvcConfig()
	cfg.StorageLimit = 10
	ts := newTestStack(t, cfg)
	cookie := signup(t, ts, "test")

	conn := dialWS(t, ts, cookie)
	readEvent(t, conn) // connect

	// Over the 10-byte quota; the connection survives the rejection.
	if err := conn.WriteJSON(clientCommand{Action: "send", Data: strings.Repeat("x", 100)}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	event := readEvent(t, conn)
	if event.Action != "error" {
		t.Fatalf("event action = %q, want error", event.Action)
	}
	if event.Info["code"] != "SF-FOLD-4002" {
		t.Fatalf("error code = %v, want SF-FOLD-4002", event.Info["code"])
	}

	// Still usable afterwards.
	if err := conn.WriteJSON(clientCommand{Action: "send", Data: "ok"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if event := readEvent(t, conn); event.Action != "send" {
		t.Fatalf("follow-up action = %q, want send", event.Action)
	}
}

func TestWS_DeadPeerReaped(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())
	cookie := signup(t, ts, "test")

	conn := dialWS(t, ts, cookie)
	readEvent(t, conn) // connect

	// Swallow pings so the peer looks dead to the server. The server
	// must drop the connection within two heartbeat intervals.
	conn.SetPingHandler(func(string) error { return nil })

	conn.SetReadDeadline(time.Now().Add(4 * time.Second))
	var event registry.Event
	err := conn.ReadJSON(&event)
	if err == nil {
		t.Fatalf("read succeeded, server kept a silent peer: %+v", event)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		t.Fatal("server never closed the unresponsive connection")
	}
}

func TestWS_HeartbeatKeepsResponsivePeer(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())
	cookie := signup(t, ts, "test")

	conn := dialWS(t, ts, cookie)
	readEvent(t, conn) // connect

	// Park a read across several heartbeat intervals; the default ping
	// handler answers with pongs, keeping the connection alive.
	got := make(chan registry.Event, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var event registry.Event
		if err := conn.ReadJSON(&event); err == nil {
			got <- event
		}
	}()

	time.Sleep(1500 * time.Millisecond)
	if err := conn.WriteJSON(clientCommand{Action: "send", Data: "still here"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case event := <-got:
		if event.Action != "send" || len(event.Msgs) != 1 || event.Msgs[0].Data != "still here" {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no broadcast; connection was dropped")
	}
}

func TestWS_CloseOnShutdown(t *testing.T) {
	ts := newTestStack(t, defaultSvcConfig())
	cookie := signup(t, ts, "test")

	conn := dialWS(t, ts, cookie)
	readEvent(t, conn) // connect

	closeCode := make(chan int, 1)
	conn.SetCloseHandler(func(code int, text string) error {
		closeCode <- code
		return nil
	})

	ts.reg.Shutdown()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event registry.Event
	if err := conn.ReadJSON(&event); err == nil {
		t.Fatal("read succeeded after shutdown close")
	}

	select {
	case code := <-closeCode:
		if code != websocket.CloseGoingAway {
			t.Fatalf("close code = %d, want %d", code, websocket.CloseGoingAway)
		}
	default:
		// Some peers tear the TCP stream down before the close frame is
		// parsed; the failed read above already proves the disconnect.
	}
}
