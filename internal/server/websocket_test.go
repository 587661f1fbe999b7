package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"riffscope/internal/codec"
)

func TestWalkSession_StartFinish(t *testing.T) {
	s := &WalkSession{stopChan: make(chan struct{})}

	first := s.start()
	second := s.start()

	select {
	case <-first:
	default:
		t.Fatal("第二次 start 应取消第一次遍历")
	}

	// 第一次遍历退出不能清除第二次的运行状态
	s.finish(first)
	if !s.running {
		t.Fatal("旧遍历结束后 running 被清除")
	}

	s.stop()
	select {
	case <-second:
	default:
		t.Fatal("stop 没有取消当前遍历")
	}
	s.finish(second)
	if s.running {
		t.Fatal("stop 之后 running 仍为 true")
	}
}

type walkMessage struct {
	Type   string         `json:"type"`
	Chunks []codec.Record `json:"chunks"`
}

func TestHandleWebSocket_WalkRestart(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	walk := map[string]interface{}{"action": "walk", "file": "a.avi", "batch": 1}
	if err := conn.WriteJSON(walk); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(walk); err != nil {
		t.Fatal(err)
	}

	// 每次遍历只有一个结束消息；最后一个 walk_start 之后只能是新遍历的块
	var msgs []walkMessage
	terminals := 0
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for terminals < 2 {
		var m walkMessage
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read after %d messages: %v", len(msgs), err)
		}
		msgs = append(msgs, m)
		if m.Type == "walk_end" || m.Type == "walk_stopped" || m.Type == "error" {
			terminals++
		}
	}

	last := -1
	for i, m := range msgs {
		if m.Type == "walk_start" {
			last = i
		}
	}
	if last < 0 {
		t.Fatal("没有收到 walk_start")
	}

	next := 0
	ended := false
	for _, m := range msgs[last+1:] {
		switch m.Type {
		case "chunks":
			if ended {
				t.Fatal("walk_end 之后仍收到块记录")
			}
			for _, c := range m.Chunks {
				if c.Index != next {
					t.Fatalf("块记录交错: got index %d, want %d", c.Index, next)
				}
				next++
			}
		case "walk_end":
			ended = true
		case "walk_stopped":
		default:
			t.Fatalf("unexpected message %q", m.Type)
		}
	}
	if !ended || next != 9 {
		t.Fatalf("最后一次遍历不完整: ended=%v chunks=%d", ended, next)
	}
}
