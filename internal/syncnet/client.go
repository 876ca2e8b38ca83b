package syncnet

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	defaultReconnectBackoff = 2 * time.Second
	dialTimeout             = 3 * time.Second
)

var (
	refreshReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_sync_refresh_received_total",
		Help: "Total number of refresh signals received by this client.",
	})
	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_sync_client_reconnects_total",
		Help: "Total number of connection attempts after the first one.",
	})
)

// ClientOptions задаёт параметры sync-клиента.
type ClientOptions struct {
	Logger  *log.Entry
	Backoff time.Duration
}

// ClientOption настраивает Client.
type ClientOption func(*ClientOptions)

// WithLogger задаёт logger для клиента.
func WithLogger(logger *log.Entry) ClientOption {
	return func(opts *ClientOptions) {
		opts.Logger = logger
	}
}

// WithBackoff задаёт паузу между попытками подключения. Backoff
// фиксированный, не экспоненциальный: сервер соседний, а лишняя попытка
// раз в пару секунд дешевле отложенной синхронизации.
func WithBackoff(backoff time.Duration) ClientOption {
	return func(opts *ClientOptions) {
		opts.Backoff = backoff
	}
}

// Client держит постоянное подключение к sync-серверу и транслирует
// полученные refresh-сигналы в локальный колбэк.
type Client struct {
	addr    string
	backoff time.Duration
	logger  *log.Entry

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	conn    net.Conn

	wg sync.WaitGroup
}

// NewClient создаёт клиента для адреса host:port.
func NewClient(addr string, options ...ClientOption) *Client {
	opts := ClientOptions{
		Backoff: defaultReconnectBackoff,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "sync-client")
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultReconnectBackoff
	}

	return &Client{
		addr:    addr,
		backoff: opts.Backoff,
		logger:  opts.Logger,
	}
}

// Start запускает фоновый цикл подключения. onRefresh вызывается
// синхронно в горутине чтения; маршалинг в UI-поток — забота колбэка.
// Повторный вызов на работающем клиенте — no-op.
func (c *Client) Start(onRefresh func()) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(onRefresh, stopCh)
}

// Stop останавливает цикл и закрывает текущее подключение, чтобы
// заблокированное чтение завершилось сразу, а не на следующем событии
// сокета.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()

	c.logger.Info("sync client stopped")
}

func (c *Client) run(onRefresh func(), stopCh chan struct{}) {
	defer c.wg.Done()

	attempt := 0
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if attempt > 0 {
			reconnectsTotal.Inc()
		}
		attempt++

		conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
		if err != nil {
			c.logger.WithError(err).WithField("backoff", c.backoff.String()).
				Debug("sync server unreachable, retrying")
			if !c.sleep(stopCh) {
				return
			}
			continue
		}

		c.setConn(conn)

		// Stop мог прийти между dial и setConn; тогда подключение
		// закрываем сами, иначе чтение зависнет навсегда.
		select {
		case <-stopCh:
			c.setConn(nil)
			_ = conn.Close()
			return
		default:
		}

		c.logger.WithField("addr", c.addr).Info("connected to sync server")

		c.readLines(conn, onRefresh)

		c.setConn(nil)
		_ = conn.Close()

		select {
		case <-stopCh:
			return
		default:
		}

		c.logger.Warn("sync connection lost, reconnecting")
		if !c.sleep(stopCh) {
			return
		}
	}
}

func (c *Client) readLines(conn net.Conn, onRefresh func()) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, refreshToken) {
			refreshReceivedTotal.Inc()
			onRefresh()
		}
		// Остальные строки протоколом не определены и игнорируются.
	}
}

// sleep ждёт фиксированный backoff; false — если за это время пришёл Stop.
func (c *Client) sleep(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return false
	case <-time.After(c.backoff):
		return true
	}
}

func (c *Client) setConn(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
