// Package syncnet реализует межпроцессный слой синхронизации склада:
// сервер рассылает подключённым клиентам односторонний текстовый сигнал
// REFRESH, клиент переподключается с фиксированным backoff и дёргает
// локальный refresh-колбэк. Протокол не несёт payload и не подтверждается;
// доставка best-effort, at-most-once, без догоняющих сигналов.
package syncnet

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// refreshToken — единственное сообщение протокола.
const refreshToken = "REFRESH"

const broadcastWriteTimeout = 2 * time.Second

var (
	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_sync_broadcasts_total",
		Help: "Total number of refresh broadcasts fanned out to clients.",
	})
	prunedConnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_sync_pruned_connections_total",
		Help: "Total number of client connections pruned after a failed write.",
	})
	acceptFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_sync_accept_failures_total",
		Help: "Total number of failed accepts on a running listener.",
	})
	activeConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medimart_sync_active_connections",
		Help: "Current number of connected sync clients.",
	})
)

// Server принимает долгоживущие подключения покупательских процессов и
// рассылает им refresh-сигнал после каждой успешной мутации склада.
type Server struct {
	addr   string
	logger *log.Entry

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	running bool

	wg sync.WaitGroup
}

// NewServer создаёт сервер на указанном адресе (host:port; порт 0 выбирает
// свободный, фактический адрес доступен через Addr).
func NewServer(addr string, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "sync-server")
	}
	return &Server{
		addr:   addr,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start связывает адрес и запускает accept-цикл в отдельной горутине.
// Повторный вызов на работающем сервере — no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.ln = ln
	s.running = true
	s.mu.Unlock()

	s.logger.WithField("addr", ln.Addr().String()).Info("sync server started")

	s.wg.Add(1)
	go s.acceptLoop(ln)

	return nil
}

// Addr возвращает фактический адрес слушающего сокета или nil, если
// сервер не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnCount возвращает число подключённых клиентов.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// BroadcastRefresh пишет refresh-токен каждому подключённому клиенту.
// Подключения с неудавшейся записью молча выбрасываются из множества:
// клиент сам переподключится и перечитает склад. Ноль клиентов — успех.
func (s *Server) BroadcastRefresh() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	broadcastsTotal.Inc()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(broadcastWriteTimeout))
		if _, err := conn.Write([]byte(refreshToken + "\n")); err != nil {
			s.logger.WithError(err).WithField("peer", conn.RemoteAddr().String()).
				Debug("pruning sync connection after failed write")
			s.removeConn(conn)
			prunedConnsTotal.Inc()
			_ = conn.Close()
		}
	}
}

// Stop прекращает приём, закрывает слушающий сокет и все подключения;
// читающие горутины завершаются, увидев закрытие.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.ln
	s.ln = nil
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
	s.wg.Wait()

	s.logger.Info("sync server stopped")
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isRunning() {
				acceptFailuresTotal.Inc()
				s.logger.WithError(err).Warn("sync accept failed")
				continue
			}
			return
		}

		s.addConn(conn)
		s.logger.WithField("peer", conn.RemoteAddr().String()).Info("sync client connected")

		s.wg.Add(1)
		go s.readLoop(conn)
	}
}

// readLoop держит подключение живым. Протокол односторонний: на принятые
// байты сервер никогда не реагирует, чтение нужно только чтобы заметить
// закрытие со стороны клиента.
func (s *Server) readLoop(conn net.Conn) {
	defer s.wg.Done()

	reader := bufio.NewReader(conn)
	for {
		if _, err := reader.ReadString('\n'); err != nil {
			break
		}
	}

	s.removeConn(conn)
	_ = conn.Close()
	s.logger.WithField("peer", conn.RemoteAddr().String()).Info("sync client disconnected")
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) addConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	activeConns.Set(float64(len(s.conns)))
	s.mu.Unlock()
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	activeConns.Set(float64(len(s.conns)))
	s.mu.Unlock()
}
