package kite

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
)

// TickHandler receives decoded ticks from the streaming connection.
type TickHandler func(domain.Tick)

// Ticker maintains the upstream Kite streaming WebSocket. One ticker
// serves the whole process; subscriptions are additive.
type Ticker struct {
	url         string
	apiKey      string
	accessToken string
	onTick      TickHandler
	logger      *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

// NewTicker builds an unconnected ticker. url is the wss endpoint,
// e.g. wss://ws.kite.trade.
func NewTicker(url, apiKey, accessToken string, onTick TickHandler, logger *zap.Logger) *Ticker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{
		url:         url,
		apiKey:      apiKey,
		accessToken: accessToken,
		onTick:      onTick,
		logger:      logger,
	}
}

// Connect dials the streaming endpoint if no live connection exists.
func (t *Ticker) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil && !t.closed {
		return nil
	}

	endpoint := fmt.Sprintf("%s?api_key=%s&access_token=%s", t.url, t.apiKey, t.accessToken)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return err
	}

	t.conn = conn
	t.closed = false
	t.done = make(chan struct{})
	go t.readLoop(conn, t.done)
	t.logger.Info("kite ticker connected")
	return nil
}

// IsConnected reports whether a live upstream connection exists.
func (t *Ticker) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && !t.closed
}

// Subscribe registers instrument tokens and switches them to full mode.
func (t *Ticker) Subscribe(tokens []int64) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("ticker not connected")
	}

	sub := map[string]interface{}{"a": "subscribe", "v": tokens}
	if err := t.writeJSON(conn, sub); err != nil {
		return err
	}
	mode := map[string]interface{}{"a": "mode", "v": []interface{}{"full", tokens}}
	return t.writeJSON(conn, mode)
}

// Close tears down the upstream connection.
func (t *Ticker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	err := t.conn.Close()
	t.conn = nil
	t.logger.Info("kite ticker disconnected")
	return err
}

func (t *Ticker) writeJSON(conn *websocket.Conn, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *Ticker) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			t.logger.Warn("kite ticker read failed", zap.Error(err))
			t.mu.Lock()
			if !t.closed {
				t.closed = true
				close(done)
			}
			t.mu.Unlock()
			return
		}
		if msgType != websocket.BinaryMessage || len(payload) < 2 {
			continue
		}
		for _, tick := range ParseTicks(payload) {
			if t.onTick != nil {
				t.onTick(tick)
			}
		}
	}
}

// ParseTicks decodes a binary ticker frame. Layout: int16 packet
// count, then per packet an int16 length prefix followed by the
// packet. The first eight bytes of every packet carry the instrument
// token and the last traded price in paise.
func ParseTicks(frame []byte) []domain.Tick {
	if len(frame) < 2 {
		return nil
	}
	count := int(binary.BigEndian.Uint16(frame[0:2]))
	ticks := make([]domain.Tick, 0, count)
	offset := 2
	now := time.Now()

	for i := 0; i < count; i++ {
		if offset+2 > len(frame) {
			break
		}
		length := int(binary.BigEndian.Uint16(frame[offset : offset+2]))
		offset += 2
		if length < 8 || offset+length > len(frame) {
			break
		}
		packet := frame[offset : offset+length]
		offset += length

		ticks = append(ticks, domain.Tick{
			InstrumentToken: int64(binary.BigEndian.Uint32(packet[0:4])),
			LastPrice:       float64(binary.BigEndian.Uint32(packet[4:8])) / 100,
			ReceivedAt:      now,
		})
	}
	return ticks
}
