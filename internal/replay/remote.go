package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/poseparty/pkg/logger"
	"golang.org/x/time/rate"
)

// Remote client defaults.
const (
	defaultIdleWait = 2 * time.Second
	writeWait       = 5 * time.Second
)

// ErrUnexpectedStatus is returned for non-2xx service responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to a running scoring service.
type Client struct {
	baseURL  string
	http     *http.Client
	dialer   *websocket.Dialer
	idleWait time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithIdleWait sets how long Stream waits for trailing updates.
func WithIdleWait(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.idleWait = d
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout},
		idleWait: defaultIdleWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// remoteMessage is the union of messages the stream pushes.
type remoteMessage struct {
	Type           string   `json:"type"`
	Seq            uint64   `json:"seq"`
	Kind           string   `json:"kind"`
	Error          string   `json:"error"`
	Similarity     *float64 `json:"similarity"`
	Tier           string   `json:"tier"`
	SessionPercent *int     `json:"session_percent"`
	Ready          bool     `json:"ready"`
	TotalFrames    int      `json:"total_frames"`
	FrameID        string   `json:"frame_id"`
	Duplicate      bool     `json:"duplicate"`
	Code           string   `json:"code"`
	Message        string   `json:"message"`
}

// CreateSession opens a session against referenceID and returns its id.
func (c *Client) CreateSession(ctx context.Context, referenceID string) (string, error) {
	body, err := json.Marshal(map[string]string{"reference_id": referenceID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", statusError(resp)
	}

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	return out.SessionID, nil
}

// EndSession deletes a session.
func (c *Client) EndSession(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/sessions/"+id, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (c *Client) streamURL(id string) string {
	u := c.baseURL + "/sessions/" + id + "/stream"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}

// Stream sends frames over the session's WebSocket and collects the pushed
// updates until every frame is acknowledged and the stream goes idle.
func (c *Client) Stream(ctx context.Context, id string, frames []Frame, pacer *rate.Limiter, out io.Writer) (Summary, error) {
	if len(frames) == 0 {
		return Summary{}, ErrNoFrames
	}
	log := logger.Get().Named("replay")

	conn, resp, err := c.dialer.DialContext(ctx, c.streamURL(id), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return Summary{}, fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	var (
		mu   sync.Mutex
		sum  = newSummary()
		acks = make(chan struct{}, len(frames))
		seen = make(chan struct{}, 1)
	)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg remoteMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			select {
			case seen <- struct{}{}:
			default:
			}
			switch msg.Type {
			case "ack", "error":
				if msg.Type == "error" {
					fmt.Fprintf(out, "rejected %s: %s\n", msg.Code, msg.Message)
				}
				acks <- struct{}{}
			case "update":
				if msg.Kind != "pose" {
					continue
				}
				mu.Lock()
				sum.observeRemote(msg)
				mu.Unlock()
				fmt.Fprintln(out, formatRemote(msg))
			}
		}
	}()

	for _, f := range frames {
		if err := pacer.Wait(ctx); err != nil {
			return copySummary(&mu, &sum), err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(map[string]any{
			"type":      "frame",
			"frame_id":  f.FrameID,
			"keypoints": toWire(f),
		})
		if err != nil {
			return copySummary(&mu, &sum), fmt.Errorf("send frame: %w", err)
		}
	}

	for range frames {
		select {
		case <-acks:
		case err := <-readErr:
			return copySummary(&mu, &sum), fmt.Errorf("read stream: %w", err)
		case <-ctx.Done():
			return copySummary(&mu, &sum), ctx.Err()
		}
	}

	// Drain trailing updates.
	idle := time.NewTimer(c.idleWait)
	defer idle.Stop()
	for {
		select {
		case <-seen:
			idle.Reset(c.idleWait)
		case <-idle.C:
			log.Debug(ctx, "stream idle", logger.String("sessionID", id))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return copySummary(&mu, &sum), nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return copySummary(&mu, &sum), nil
			}
			return copySummary(&mu, &sum), fmt.Errorf("read stream: %w", err)
		case <-ctx.Done():
			return copySummary(&mu, &sum), ctx.Err()
		}
	}
}

func copySummary(mu *sync.Mutex, s *Summary) Summary {
	mu.Lock()
	defer mu.Unlock()
	out := *s
	out.Tiers = make(map[string]int, len(s.Tiers))
	for k, v := range s.Tiers {
		out.Tiers[k] = v
	}
	return out
}

type wireKeypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

func toWire(f Frame) []wireKeypoint {
	out := make([]wireKeypoint, len(f.Keypoints))
	for i, kp := range f.Keypoints {
		out[i] = wireKeypoint{Name: kp.Name, X: kp.X, Y: kp.Y, Score: kp.Confidence}
	}
	return out
}

func (s *Summary) observeRemote(m remoteMessage) { //nolint:gocritic // hugeParam: message decoded per read
	s.Frames++
	if m.Error == "" && m.Similarity != nil {
		s.Scored++
		s.Tiers[m.Tier]++
	} else {
		s.Skipped++
	}
	if m.SessionPercent != nil {
		s.Percent, s.HasScore = *m.SessionPercent, true
	}
	s.Ready = m.Ready
}

func formatRemote(m remoteMessage) string { //nolint:gocritic // hugeParam: message decoded per read
	if m.Error != "" {
		return fmt.Sprintf("%6d skipped: %s", m.Seq, m.Error)
	}
	pct := "-"
	if m.SessionPercent != nil {
		pct = fmt.Sprintf("%3d%%", *m.SessionPercent)
		if m.Ready {
			pct += " ready"
		}
	}
	sim := 0.0
	if m.Similarity != nil {
		sim = *m.Similarity
	}
	return fmt.Sprintf("%6d %.4f %-9s %s", m.Seq, sim, m.Tier, pct)
}
