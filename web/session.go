package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"frauddetect/client"
	qhttp "frauddetect/http"
	"frauddetect/ml"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// MessageType 会话消息类型
type MessageType string

const (
	MessageParse   MessageType = "parse"
	MessagePredict MessageType = "predict"
	MessagePing    MessageType = "ping"

	MessageParsed MessageType = "parsed"
	MessageResult MessageType = "result"
	MessageError  MessageType = "error"
	MessagePong   MessageType = "pong"
)

// ClientMessage 浏览器发来的消息
type ClientMessage struct {
	Type   MessageType        `json:"type"`
	CSV    string             `json:"csv"`
	Manual map[string]float64 `json:"manual,omitempty"`
}

// ServerMessage 返回给浏览器的消息
type ServerMessage struct {
	Type        MessageType        `json:"type"`
	Preview     map[string]float64 `json:"preview,omitempty"`
	Source      client.Source      `json:"source,omitempty"`
	ParseError  string             `json:"parse_error,omitempty"`
	Probability *float64           `json:"probability,omitempty"`
	Label       *int               `json:"label,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// session is one websocket connection. Messages are handled strictly in
// arrival order; a predict call finishes before the next message is read.
type session struct {
	frontend *Frontend
	conn     *websocket.Conn
	send     chan ServerMessage
	logger   *zap.Logger
}

// handleWebSocket 处理WebSocket连接
func (f *Frontend) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := qhttp.LoggerFromContext(r.Context())
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		frontend: f,
		conn:     conn,
		send:     make(chan ServerMessage, 1),
		logger:   logger,
	}
	logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump()
	}()
	s.readPump(ctx)
	<-done
	logger.Info("websocket closed")
}

// readPump 读取并逐条处理消息
func (s *session) readPump(ctx context.Context) {
	defer close(s.send)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send <- ServerMessage{Type: MessageError, Error: "invalid message: " + err.Error()}
			continue
		}
		s.send <- s.frontend.handleMessage(ctx, msg)
	}
}

// writePump 写出回复并定时发送ping
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Warn("websocket write failed", zap.Error(err))
				// unblock the reader
				s.conn.Close()
				for range s.send {
				}
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				for range s.send {
				}
				return
			}
		}
	}
}

// handleMessage 处理单条消息
func (f *Frontend) handleMessage(ctx context.Context, msg ClientMessage) ServerMessage {
	switch msg.Type {
	case MessagePing:
		return ServerMessage{Type: MessagePong}

	case MessageParse:
		tx, err := client.ParseCSVRow(msg.CSV)
		if err != nil {
			return ServerMessage{Type: MessageError, Error: err.Error()}
		}
		preview := make(map[string]float64, client.PreviewFields)
		for _, field := range client.Preview(tx, client.PreviewFields) {
			preview[field.Name] = field.Value
		}
		return ServerMessage{Type: MessageParsed, Preview: preview}

	case MessagePredict:
		resolution := client.Resolve(msg.CSV, ml.TransactionFromMap(msg.Manual))
		reply := ServerMessage{Source: resolution.Source}
		if resolution.ParseErr != nil {
			reply.ParseError = resolution.ParseErr.Error()
		}
		prediction, errText := f.predict(ctx, resolution.Record)
		if errText != "" {
			reply.Type = MessageError
			reply.Error = errText
			return reply
		}
		reply.Type = MessageResult
		reply.Probability = &prediction.Probability
		reply.Label = &prediction.Label
		return reply

	default:
		return ServerMessage{Type: MessageError, Error: "unknown message type " + string(msg.Type)}
	}
}
