package handlers

import (
	"encoding/json"
	"sync"

	"github.com/kataras/iris/v12/websocket"
	"github.com/kataras/neffos"

	"riffscope/internal/avi"
	"riffscope/internal/codec"
	"riffscope/internal/server"
)

// InspectSession 一个连接上打开的文件
type InspectSession struct {
	file    string
	in      *avi.Inspection
	cursor  int
	pageLen int
	mu      sync.Mutex
}

// EventHandler neffos 命名空间 "inspect" 的事件处理器
// 与 /api/v1/stream 功能相同，但由客户端按需拉取分页
type EventHandler struct {
	Handlers *server.Handlers
	sessions map[*neffos.Conn]*InspectSession
	mu       sync.RWMutex
}

const defaultPageLen = 128

// NewEventHandler 创建事件处理器
func NewEventHandler(h *server.Handlers) *EventHandler {
	return &EventHandler{
		Handlers: h,
		sessions: make(map[*neffos.Conn]*InspectSession),
	}
}

// OnConnect 连接建立
func (e *EventHandler) OnConnect(c *neffos.NSConn, msg neffos.Message) error {
	avi.LogDebug("[Events] 客户端连接", "id", c.Conn.ID())
	return nil
}

// OnDisconnect 连接断开
func (e *EventHandler) OnDisconnect(c *neffos.NSConn, msg neffos.Message) error {
	avi.LogDebug("[Events] 客户端断开", "id", c.Conn.ID())
	e.mu.Lock()
	delete(e.sessions, c.Conn)
	e.mu.Unlock()
	return nil
}

func (e *EventHandler) session(c *neffos.NSConn) *InspectSession {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[c.Conn]
}

func emitJSON(c *neffos.NSConn, event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Emit(event, b)
}

func emitError(c *neffos.NSConn, err error) {
	emitJSON(c, "error", map[string]string{"error": err.Error()})
}

// OnOpen 打开文件
func (e *EventHandler) OnOpen(c *neffos.NSConn, msg neffos.Message) error {
	var req struct {
		File    string `json:"file"`
		PageLen int    `json:"page_len"`
	}
	if err := msg.Unmarshal(&req); err != nil {
		return err
	}

	in, err := e.Handlers.Library().Inspect(req.File)
	if err != nil {
		emitError(c, err)
		return nil
	}

	if req.PageLen <= 0 {
		req.PageLen = defaultPageLen
	}
	e.mu.Lock()
	e.sessions[c.Conn] = &InspectSession{file: req.File, in: in, pageLen: req.PageLen}
	e.mu.Unlock()

	emitJSON(c, "opened", map[string]any{
		"file":      req.File,
		"container": in.Container,
		"total":     len(in.Records),
		"summary":   in.Summary,
		"error":     in.Err,
	})
	return nil
}

// OnNext 拉取下一页块记录 (CBOR)
func (e *EventHandler) OnNext(c *neffos.NSConn, msg neffos.Message) error {
	s := e.session(c)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	from := s.cursor
	page := codec.Records(s.in.Records, from, from+s.pageLen)
	s.cursor = from + len(page)
	done := s.cursor >= len(s.in.Records)
	s.mu.Unlock()

	b, err := codec.Marshal(page)
	if err != nil {
		return err
	}
	c.EmitBinary("chunks", b)
	if done {
		c.Emit("ended", nil)
	}
	return nil
}

// OnSeek 跳到指定记录，回复 seeked 和截断后的下标
func (e *EventHandler) OnSeek(c *neffos.NSConn, msg neffos.Message) error {
	var req struct {
		Index int `json:"index"`
	}
	if err := msg.Unmarshal(&req); err != nil {
		return err
	}

	s := e.session(c)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	idx := req.Index
	if idx >= len(s.in.Records) {
		idx = len(s.in.Records)
	}
	if idx < 0 {
		idx = 0
	}
	s.cursor = idx
	s.mu.Unlock()

	emitJSON(c, "seeked", map[string]int{"index": idx})
	return nil
}

// SessionCount 当前打开文件的连接数
func (e *EventHandler) SessionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// OnPayload 读取一个块的负载
func (e *EventHandler) OnPayload(c *neffos.NSConn, msg neffos.Message) error {
	var req struct {
		Index int `json:"index"`
	}
	if err := msg.Unmarshal(&req); err != nil {
		return err
	}
	s := e.session(c)
	if s == nil {
		return nil
	}

	r, data, err := e.Handlers.Library().ReadPayload(s.file, req.Index)
	if err != nil {
		emitError(c, err)
		return nil
	}

	c.EmitBinary("payload", server.PayloadFrame(r, data))
	return nil
}

// RegisterEvents 注册 WebSocket 事件
func (e *EventHandler) RegisterEvents() websocket.Namespaces {
	return websocket.Namespaces{
		"inspect": websocket.Events{
			websocket.OnNamespaceConnected:  e.OnConnect,
			websocket.OnNamespaceDisconnect: e.OnDisconnect,
			"open":                          e.OnOpen,
			"next":                          e.OnNext,
			"seek":                          e.OnSeek,
			"payload":                       e.OnPayload,
		},
	}
}
