package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 16
)

// Envelope 推送给前端的事件
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Session 一条 websocket 连接，写操作全部在 writeLoop 中串行执行
type Session struct {
	SubjectID int64

	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (s *Session) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub 按 subject 维护在线会话，一个 subject 可以同时有多条连接
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[int64]map[*Session]struct{})}
}

// Attach 登记连接并启动读写协程，连接断开后自动注销
func (h *Hub) Attach(subjectID int64, conn *websocket.Conn) *Session {
	s := &Session{
		SubjectID: subjectID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	set := h.sessions[subjectID]
	if set == nil {
		set = make(map[*Session]struct{})
		h.sessions[subjectID] = set
	}
	set[s] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	log.Printf("WS: subject %d attached (%d sessions)", subjectID, n)

	go h.writeLoop(s)
	go h.readLoop(s)
	return s
}

// Detach 注销会话，可重复调用
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	set, ok := h.sessions[s.SubjectID]
	if ok {
		if _, present := set[s]; !present {
			ok = false
		}
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, s.SubjectID)
		}
	}
	h.mu.Unlock()

	s.stop()
	if ok {
		log.Printf("WS: subject %d detached", s.SubjectID)
	}
}

// Push 投递给 subject 的全部会话，返回成功入队的会话数；缓冲已满的会话被断开
func (h *Hub) Push(subjectID int64, env Envelope) (int, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return 0, err
	}

	var slow []*Session
	delivered := 0

	h.mu.RLock()
	for s := range h.sessions[subjectID] {
		select {
		case s.send <- payload:
			delivered++
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		log.Printf("WS: subject %d session too slow, dropping", subjectID)
		h.Detach(s)
	}
	return delivered, nil
}

// Online subject 是否有在线会话
func (h *Hub) Online(subjectID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[subjectID]) > 0
}

// Sessions 当前在线会话总数
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.sessions {
		n += len(set)
	}
	return n
}

// Shutdown 服务退出时断开全部会话
func (h *Hub) Shutdown() {
	h.mu.Lock()
	all := h.sessions
	h.sessions = make(map[int64]map[*Session]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for s := range set {
			s.stop()
		}
	}
}

// readLoop 丢弃客户端消息，只用来感知断开和处理 pong
func (h *Hub) readLoop(s *Session) {
	defer h.Detach(s)

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *Session) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("WS: write to subject %d failed: %v", s.SubjectID, err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(time.Second))
			return
		}
	}
}
