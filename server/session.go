package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sessionQueue   = 64
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
)

// Session 一个客户端的 WebSocket 会话。
// readLoop 把文本帧解码成 Input 投递给房间；writeLoop 独占写端，发送广播帧并定时 ping。
// Send/Close 只在 Tick 协程中调用（房间未启动时也可在接入协程中调用）。
type Session struct {
	ws     *websocket.Conn
	out    chan []byte
	closed bool
}

func newSession(ws *websocket.Conn) *Session {
	return &Session{ws: ws, out: make(chan []byte, sessionQueue)}
}

// Send 非阻塞投递一帧，队列满或会话已关闭时丢弃并返回 false
func (s *Session) Send(frame []byte) bool {
	if s.closed {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// Close 关闭发送队列，writeLoop 发出 close 帧后断开连接；重复调用无效果
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}

func (s *Session) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = s.ws.Close()
	}()
	for {
		select {
		case frame, ok := <-s.out:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session replaced or closed"))
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop 退出时带上自身请求离开，房间据此判断是否仍是该玩家的当前会话
func (s *Session) readLoop(room *Room, id PlayerID) {
	defer func() {
		_ = s.ws.Close()
		room.RequestLeave(id, s)
	}()

	s.ws.SetReadLimit(maxMessageSize)
	alive := func(string) error { return s.ws.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = alive("")
	s.ws.SetPongHandler(alive)

	for {
		kind, payload, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Warnf("session read: room=%s player=%s: %v", room.ID, id, err)
			}
			return
		}
		_ = alive("")
		if kind != websocket.TextMessage {
			continue
		}
		if in, ok := decodeInput(payload, id); ok {
			room.OnInput(in)
		}
	}
}

func decodeInput(payload []byte, id PlayerID) (Input, bool) {
	var msg InputMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Input{}, false
	}
	return msg.ToInput(id)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// HandleWS 接入：/ws?room=room-1&player=alice，缺省 player 时分配 guest 名字。
// 同名再次接入会接管已有玩家，旧会话被关闭。
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := PlayerID(q.Get("player"))
	if id == "" {
		id = PlayerID("guest-" + uuid.NewString()[:8])
	}

	room, err := m.GetOrCreateRoom(m.roomParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade: room=%s player=%s: %v", room.ID, id, err)
		return
	}

	s := newSession(ws)
	go s.writeLoop()
	if !room.RequestJoin(id, s) {
		// 房间已停止
		s.Close()
		return
	}
	go s.readLoop(room, id)
}

func (m *RoomManager) roomParam(r *http.Request) string {
	if id := r.URL.Query().Get("room"); id != "" {
		return id
	}
	return m.cfg.Server.DefaultRoom
}
