package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"riffscope/internal/avi"
	"riffscope/internal/codec"
	"riffscope/internal/models"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const defaultWalkBatch = 256

// WSMessage WebSocket 请求
type WSMessage struct {
	Action string `json:"action"`
	File   string `json:"file"`
	Index  int    `json:"index"`
	Batch  int    `json:"batch"`
}

// WalkSession 一个连接上的块遍历会话
type WalkSession struct {
	ws       *websocket.Conn
	lib      *Library
	stopChan chan struct{}
	mu       sync.Mutex
	running  bool
}

// HandleWebSocket WebSocket 处理器
//
// 客户端发送 {"action":"walk","file":...} 后，服务端按批推送块记录：
// walk_start -> chunks (多次) -> walk_end；"payload" 以二进制帧返回一个块的负载；
// "stop" 中止正在进行的遍历。
func (h *Handlers) HandleWebSocket(ctx iris.Context) {
	ws, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		avi.LogWarn("[WS] Upgrade error", "error", err)
		return
	}
	defer ws.Close()

	session := &WalkSession{
		ws:       ws,
		lib:      h.Library(),
		stopChan: make(chan struct{}),
	}

	sessionID := fmt.Sprintf("%p", ws)
	avi.LogDebug("[WS] 新连接", "session", sessionID)

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				avi.LogWarn("[WS] Error", "error", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			session.sendJSON(map[string]interface{}{"error": "无效的 JSON"})
			continue
		}

		switch msg.Action {
		case "walk":
			if msg.Batch <= 0 {
				msg.Batch = defaultWalkBatch
			}
			// start 在读循环中同步执行，上一次遍历此时已被取消
			go session.walk(session.start(), msg.File, msg.Batch)
			avi.LogDebug("[WS] 开始遍历", "file", msg.File, "batch", msg.Batch)

		case "payload":
			session.sendPayload(msg.File, msg.Index)

		case "stop":
			session.stop()

		default:
			session.sendJSON(map[string]interface{}{"error": "未知 action: " + msg.Action})
		}
	}

	session.stop()
	avi.LogDebug("[WS] 断开连接", "session", sessionID)
}

// start 取消正在进行的遍历并登记新的遍历，返回新遍历的停止通道
func (s *WalkSession) start() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopChan)
	}
	s.stopChan = make(chan struct{})
	s.running = true
	return s.stopChan
}

func (s *WalkSession) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopChan)
		s.stopChan = make(chan struct{})
		s.running = false
	}
}

// finish 遍历结束，只清除自己登记的状态
func (s *WalkSession) finish(stopChan chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan == stopChan {
		s.running = false
	}
}

func (s *WalkSession) sendJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteJSON(v)
}

// sendActive 仅当 stopChan 未关闭时发送，检查与写入在同一把锁内
func (s *WalkSession) sendActive(stopChan chan struct{}, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-stopChan:
		return false, nil
	default:
	}
	return true, s.ws.WriteJSON(v)
}

func (s *WalkSession) sendBytes(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteMessage(websocket.BinaryMessage, data)
}

// walk 分批推送块记录
// 每次遍历只发送一个结束消息，被取消后不再发送块记录
func (s *WalkSession) walk(stopChan chan struct{}, file string, batch int) {
	defer s.finish(stopChan)

	stopped := func(sent int) {
		s.sendJSON(map[string]interface{}{"type": "walk_stopped", "file": file, "sent": sent})
	}

	in, err := s.lib.Inspect(file)
	if err != nil {
		if ok, _ := s.sendActive(stopChan, map[string]interface{}{"type": "error", "error": err.Error()}); !ok {
			stopped(0)
		}
		return
	}

	ok, err := s.sendActive(stopChan, map[string]interface{}{
		"type":      "walk_start",
		"file":      in.Name,
		"container": in.Container,
		"total":     len(in.Records),
	})
	if err != nil {
		return
	}
	if !ok {
		stopped(0)
		return
	}

	for from := 0; from < len(in.Records); from += batch {
		ok, err := s.sendActive(stopChan, map[string]interface{}{
			"type":   "chunks",
			"chunks": codec.Records(in.Records, from, from+batch),
		})
		if err != nil {
			return
		}
		if !ok {
			stopped(from)
			return
		}
	}

	ok, err = s.sendActive(stopChan, map[string]interface{}{
		"type":    "walk_end",
		"summary": in.Summary,
		"error":   in.Err,
	})
	if err == nil && !ok {
		stopped(len(in.Records))
	}
}

// sendPayload 以二进制帧发送一个块的负载
func (s *WalkSession) sendPayload(file string, idx int) {
	r, data, err := s.lib.ReadPayload(file, idx)
	if err != nil {
		s.sendJSON(map[string]interface{}{"type": "error", "error": err.Error()})
		return
	}

	s.sendBytes(PayloadFrame(r, data))
}

// PayloadFrame 负载二进制帧: Offset(8) + Size(4) + Tag(4) + 负载
func PayloadFrame(r models.ChunkRecord, data []byte) []byte {
	frame := make([]byte, 16+len(data))
	binary.LittleEndian.PutUint64(frame[0:8], r.Offset)
	binary.LittleEndian.PutUint32(frame[8:12], r.Size)
	copy(frame[12:16], r.Tag[:])
	copy(frame[16:], data)
	return frame
}
