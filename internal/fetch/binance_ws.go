package fetch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"market-context-lab/internal/domain"
)

// DefaultBinanceWSURL streams the BTCUSDT mini ticker. Each message carries
// the latest close price in the "c" field.
const DefaultBinanceWSURL = "wss://stream.binance.com:9443/ws/btcusdt@miniTicker"

// BinanceStreamConfig configures stream behavior.
type BinanceStreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
	// StaleAfter is how long a streamed quote stays usable. Past that,
	// SpotQuote falls back to REST.
	StaleAfter time.Duration
}

// DefaultBinanceStreamConfig returns default stream configuration.
func DefaultBinanceStreamConfig() BinanceStreamConfig {
	return BinanceStreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		StaleAfter:        2 * time.Minute,
	}
}

// BinanceStream keeps a live websocket to the Binance ticker stream and
// serves the most recent message as a spot quote. When the stream has not
// produced a fresh quote it defers to an optional REST fallback.
type BinanceStream struct {
	endpoint string
	config   BinanceStreamConfig
	fallback QuoteSource

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	latest   *domain.RawExchangeQuote
	latestAt time.Time
	latestMu sync.RWMutex

	now func() time.Time

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewBinanceStream connects to the stream endpoint and starts the read and
// ping loops. fallback may be nil.
func NewBinanceStream(ctx context.Context, endpoint string, fallback QuoteSource, config *BinanceStreamConfig) (*BinanceStream, error) {
	if endpoint == "" {
		endpoint = DefaultBinanceWSURL
	}
	cfg := DefaultBinanceStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &BinanceStream{
		endpoint: endpoint,
		config:   cfg,
		fallback: fallback,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

var _ QuoteSource = (*BinanceStream)(nil)

// connect establishes the websocket connection.
func (s *BinanceStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// SpotQuote returns the most recent streamed quote. A stale or missing
// stream quote falls through to the REST fallback.
func (s *BinanceStream) SpotQuote(ctx context.Context) (*domain.RawExchangeQuote, error) {
	s.latestMu.RLock()
	quote := s.latest
	age := s.now().Sub(s.latestAt)
	s.latestMu.RUnlock()

	if quote != nil && age <= s.config.StaleAfter {
		return quote, nil
	}

	if s.fallback != nil {
		return s.fallback.SpotQuote(ctx)
	}

	return nil, fmt.Errorf("no fresh binance quote available")
}

// Close closes the websocket connection and stops the loops.
func (s *BinanceStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// readLoop reads ticker messages and keeps the latest one.
func (s *BinanceStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.storeQuote(message)
	}
}

// storeQuote keeps the verbatim ticker message as the latest quote.
func (s *BinanceStream) storeQuote(message []byte) {
	body := make([]byte, len(message))
	copy(body, message)

	s.latestMu.Lock()
	s.latest = &domain.RawExchangeQuote{
		Venue: domain.VenueBinance,
		Body:  body,
	}
	s.latestAt = s.now()
	s.latestMu.Unlock()
}

// reconnect attempts to re-establish the connection after delay.
func (s *BinanceStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Reconnect failed here is retried on the next read error.
	_ = s.connect(ctx)
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *BinanceStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}
