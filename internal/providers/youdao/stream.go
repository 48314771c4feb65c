package youdao

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voxlate/internal/domain"
	"voxlate/internal/errorsx"
	"voxlate/internal/ports"
)

var ErrConnectionClosed = errors.New("streaming connection is closed")

// DialerConfig controls websocket timeouts.
type DialerConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	CloseTimeout     time.Duration
}

// Dialer implements ports.StreamDialer over gorilla/websocket.
type Dialer struct {
	cfg    DialerConfig
	dialer *websocket.Dialer
	logger zerolog.Logger
}

func NewDialer(cfg DialerConfig, logger zerolog.Logger) *Dialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 2 * time.Second
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = cfg.HandshakeTimeout
	return &Dialer{cfg: cfg, dialer: &dialer, logger: logger}
}

func (d *Dialer) Dial(ctx context.Context, url string) (ports.Connection, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, errorsx.Wrap(fmt.Errorf("failed to connect to streaming endpoint: %w", err), errorsx.ReasonConnection)
	}

	c := &connection{
		conn:         conn,
		logger:       d.logger,
		writeTimeout: d.cfg.WriteTimeout,
		closeTimeout: d.cfg.CloseTimeout,
		messages:     make(chan domain.InboundMessage, 64),
		outbound:     make(chan outboundFrame, 32),
		closing:      make(chan struct{}),
		readerDone:   make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

type outboundFrame struct {
	messageType int
	payload     []byte
}

type connection struct {
	conn         *websocket.Conn
	logger       zerolog.Logger
	writeTimeout time.Duration
	closeTimeout time.Duration

	messages   chan domain.InboundMessage
	outbound   chan outboundFrame
	closing    chan struct{}
	readerDone chan struct{}
	writerDone chan struct{}

	statusMu  sync.Mutex
	status    domain.CloseStatus
	statusSet bool

	sendMu     sync.RWMutex
	sendClosed bool
	closeOnce  sync.Once
}

func (c *connection) SendBinary(payload []byte) error {
	return c.enqueue(websocket.BinaryMessage, payload)
}

func (c *connection) SendText(payload []byte) error {
	return c.enqueue(websocket.TextMessage, payload)
}

func (c *connection) enqueue(messageType int, payload []byte) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.sendClosed {
		return ErrConnectionClosed
	}

	frame := outboundFrame{messageType: messageType, payload: append([]byte(nil), payload...)}
	select {
	case c.outbound <- frame:
		return nil
	case <-c.writerDone:
		return ErrConnectionClosed
	case <-c.readerDone:
		return ErrConnectionClosed
	}
}

func (c *connection) Messages() <-chan domain.InboundMessage {
	return c.messages
}

func (c *connection) CloseStatus() domain.CloseStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

func (c *connection) Open() bool {
	c.sendMu.RLock()
	closed := c.sendClosed
	c.sendMu.RUnlock()
	if closed {
		return false
	}
	select {
	case <-c.readerDone:
		return false
	case <-c.writerDone:
		return false
	default:
		return true
	}
}

// Close flushes queued frames, sends a close frame and tears the socket down.
func (c *connection) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.setStatus(domain.CloseStatus{Code: websocket.CloseNormalClosure, Text: "closed by client"})
		close(c.closing)

		c.sendMu.Lock()
		c.sendClosed = true
		close(c.outbound)
		c.sendMu.Unlock()

		select {
		case <-c.writerDone:
		case <-time.After(c.closeTimeout):
			c.logger.Warn().Msg("timed out flushing outbound frames")
		}

		if err := c.conn.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close streaming connection: %w", err)
		}
		<-c.readerDone
	})
	return closeErr
}

func (c *connection) setStatus(status domain.CloseStatus) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if c.statusSet {
		return
	}
	c.status = status
	c.statusSet = true
}

func (c *connection) writeLoop() {
	defer close(c.writerDone)

	for frame := range c.outbound {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err := c.conn.WriteMessage(frame.messageType, frame.payload); err != nil {
			c.logger.Warn().Err(err).Int("bytes", len(frame.payload)).Msg("failed to write frame")
			return
		}
	}

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(c.writeTimeout)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("failed to write close frame")
	}
}

func (c *connection) readLoop() {
	defer close(c.readerDone)
	defer close(c.messages)

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.setStatus(closeStatusFromError(err))
			return
		}

		message := domain.InboundMessage{Binary: messageType == websocket.BinaryMessage, Payload: payload}
		select {
		case c.messages <- message:
		case <-c.closing:
			return
		}
	}
}

// closeStatusFromError maps a read error to a close status. Normal closures
// carry no error; transport failures without a close frame carry code 0.
func closeStatusFromError(err error) domain.CloseStatus {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		status := domain.CloseStatus{Code: closeErr.Code, Text: closeErr.Text}
		if !websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
		) {
			status.Err = err
		}
		return status
	}
	return domain.CloseStatus{Text: err.Error(), Err: err}
}
