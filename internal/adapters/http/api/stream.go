package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/poseparty/internal/domain/session"
	"github.com/okian/poseparty/pkg/logger"
)

// Stream timing and buffering.
const (
	streamBuffer   = 32
	outboxBuffer   = 16
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	closeGraceTime = time.Second
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // shared upgrader is stateless
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamMessage is what clients may send over the stream.
type streamMessage struct {
	Type        string            `json:"type"`
	FrameID     string            `json:"frame_id"`
	Keypoints   []keypointRequest `json:"keypoints"`
	ReferenceID string            `json:"reference_id"`
}

type streamAck struct {
	Type      string `json:"type"`
	FrameID   string `json:"frame_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

type snapshotMessage struct {
	Type string `json:"type"`
	snapshotResponse
}

// handleStream handles GET /sessions/{id}/stream. The connection first
// receives the current snapshot, then one update per processed event. Clients
// may submit frames and reference switches on the same connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe before upgrading so unknown sessions get a plain 404.
	updates, unsubscribe, err := s.deps.Subscribe(r.Context(), id, streamBuffer)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	defer unsubscribe()

	snap, err := s.deps.Snapshot(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(ctx, "websocket upgrade failed", logger.String("sessionID", id), logger.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Debug(ctx, "stream opened", logger.String("sessionID", id))
	conn.SetReadLimit(s.wsReadLimit)

	outbox := make(chan any, outboxBuffer)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readStream(ctx, conn, id, outbox)
	}()

	s.writeStream(ctx, conn, updates, outbox, readDone, snapshotMessage{
		Type:             "snapshot",
		snapshotResponse: newSnapshotResponse(id, snap),
	})
	cancel()
	<-readDone
	s.logger.Debug(ctx, "stream closed", logger.String("sessionID", id))
}

// writeStream is the only goroutine writing to conn.
func (s *Server) writeStream(ctx context.Context, conn *websocket.Conn, updates <-chan session.Update, outbox <-chan any, readDone <-chan struct{}, first any) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			s.logger.Debug(ctx, "stream write failed", logger.Error(err))
			return false
		}
		return true
	}

	if !write(first) {
		return
	}
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				// Session ended.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(closeGraceTime))
				return
			}
			if !write(newUpdateMessage(u)) {
				return
			}
		case m := <-outbox:
			if !write(m) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

// readStream consumes client messages until the connection fails.
func (s *Server) readStream(ctx context.Context, conn *websocket.Conn, id string, outbox chan<- any) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	reply := func(v any) {
		select {
		case outbox <- v:
		case <-ctx.Done():
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "stream read failed", logger.String("sessionID", id), logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(streamError(WrapKind("decode message", ErrBadRequest, err)))
			continue
		}
		reply(s.handleStreamMessage(ctx, id, msg))
	}
}

func (s *Server) handleStreamMessage(ctx context.Context, id string, msg streamMessage) any { //nolint:gocritic // hugeParam: message decoded per read
	switch msg.Type {
	case "frame":
		p, err := frameRequest{FrameID: msg.FrameID, Keypoints: msg.Keypoints}.toPose(s.maxFrameKeypoints)
		if err != nil {
			return streamError(err)
		}
		dup, err := s.deps.SubmitFrame(ctx, id, msg.FrameID, p)
		if err != nil {
			return streamError(err)
		}
		return streamAck{Type: "ack", FrameID: msg.FrameID, Duplicate: dup}
	case "reference":
		if msg.ReferenceID == "" {
			return streamError(NewKind("select reference", ErrBadRequest))
		}
		if err := s.deps.SelectReference(ctx, id, msg.ReferenceID); err != nil {
			return streamError(err)
		}
		return streamAck{Type: "ack"}
	default:
		return streamError(WrapKind("stream message", ErrBadRequest, errors.New("unknown type "+msg.Type)))
	}
}

func streamError(err error) streamAck {
	_, code := statusFor(err)
	return streamAck{Type: "error", Code: code, Message: err.Error()}
}
