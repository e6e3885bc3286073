package beast

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Server accepts TCP clients (feeders like virtual radar servers) and
// fans out every Broadcast call to all of them, dropping a client whose
// write buffer cannot keep up rather than blocking the decoder loop.
type Server struct {
	logger   *logrus.Logger
	listener net.Listener

	mu      sync.Mutex
	clients map[net.Conn]chan []byte
}

// NewServer binds addr (e.g. ":30005") and starts accepting connections in
// the background. Call Close to stop listening and disconnect clients.
func NewServer(logger *logrus.Logger, addr string) (*Server, error) {
	if logger == nil {
		logger = logrus.New()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		logger:   logger,
		listener: ln,
		clients:  make(map[net.Conn]chan []byte),
	}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.addClient(conn)
	}
}

func (s *Server) addClient(conn net.Conn) {
	ch := make(chan []byte, 256)

	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	s.logger.WithField("remote", conn.RemoteAddr()).Info("beast: client connected")

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for msg := range ch {
			if _, err := conn.Write(msg); err != nil {
				return
			}
		}
	}()
}

// Broadcast queues msg for delivery to every connected client. A client
// whose channel is full is disconnected instead of stalling the others.
func (s *Server) Broadcast(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		select {
		case ch <- msg:
		default:
			s.logger.WithField("remote", conn.RemoteAddr()).Warn("beast: client too slow, dropping")
			delete(s.clients, conn)
			close(ch)
			conn.Close()
		}
	}
}

// ClientCount reports how many feeders are currently connected.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close stops accepting new connections and disconnects existing clients.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		close(ch)
		conn.Close()
		delete(s.clients, conn)
	}
	return err
}
