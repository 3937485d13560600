// Package printer implements a dummy network printer: a strictly
// sequential TCP server that writes each client's byte stream verbatim
// into a new file in a spool directory. It is intended as a CUPS
// backend target, so "printing" a job means the raw bytes land on disk.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// DefaultChunkSize is the transfer buffer size used when Config leaves
// ChunkSize unset.
const DefaultChunkSize = 512

// Config holds the settings for a Server.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string
	// Dir is the spool directory incoming jobs are written into.
	Dir string
	// ChunkSize is the transfer buffer size in bytes.
	ChunkSize int
	// Log receives all operational events. Defaults to the logrus
	// standard logger.
	Log *logrus.Logger
}

// Server accepts one print client at a time and spools its data to a
// file. The zero value is not usable; call New.
//
// Exactly one client connection and one spool file are open at any
// instant. The serve loop and the shutdown path both mutate that state,
// so it is guarded by a mutex and each handle is nilled out in the same
// critical section that closes it, which is what makes Shutdown safe to
// call at any point relative to an in-flight job.
type Server struct {
	cfg Config
	log *logrus.Logger

	// now and randInt are swapped out in tests to force the
	// random-filename fallback.
	now     func() (time.Time, error)
	randInt func() int

	mu       sync.Mutex
	listener net.Listener
	client   net.Conn
	spool    *os.File

	shutdownOnce sync.Once
	done         chan struct{}
}

// New returns a Server for the given configuration.
func New(cfg Config) *Server {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	return &Server{
		cfg:     cfg,
		log:     cfg.Log,
		now:     func() (time.Time, error) { return time.Now(), nil },
		randInt: rand.Int,
		done:    make(chan struct{}),
	}
}

// Listen resolves the configured address and starts listening on it.
// Resolution and listen failures are reported separately so startup
// logs point at the actual problem.
func (s *Server) Listen() error {
	addr, err := net.ResolveTCPAddr("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.cfg.Addr, err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.WithField("addr", listener.Addr()).Info("listening for print jobs")
	return nil
}

// Addr returns the address the server is listening on, or nil before
// Listen or after Shutdown.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves print jobs until the context is canceled or Shutdown is
// called. It blocks; the caller decides whether to run it in a
// goroutine. Listen must have been called first.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	listening := s.listener != nil
	s.mu.Unlock()
	if !listening {
		return errors.New("server is not listening")
	}

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.done:
		}
		return nil
	})
	g.Go(func() error {
		s.serve()
		return nil
	})
	return g.Wait()
}

// serve is the accept loop: one client, one job, one file, repeat.
// It returns once the listener has been closed by Shutdown.
func (s *Server) serve() {
	buf := make([]byte, s.cfg.ChunkSize)

	for {
		conn, err := s.accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.WithError(err).Warn("accept failed")
			continue
		}
		s.log.Info("accepted new print client")
		s.setClient(conn)

		name, err := s.pickName()
		if err != nil {
			s.log.WithError(err).Warn("abandoning print job, no usable filename")
			s.closeClient()
			continue
		}

		s.log.WithField("file", name).Info("start printing")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			s.log.WithError(err).WithField("file", name).Warn("cannot open spool file, abandoning print job")
			s.closeClient()
			continue
		}
		s.setSpool(f)

		s.transfer(conn, f, buf)
		s.log.WithField("file", name).Info("done printing")

		// Job data must not linger in memory after the file is
		// written.
		for i := range buf {
			buf[i] = 0
		}
		s.closeSpool()
		s.closeClient()
	}
}

func (s *Server) accept() (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, net.ErrClosed
	}
	return listener.Accept()
}

// transfer copies the client's stream into the spool file in
// ChunkSize reads. A read error ends the job exactly like a clean
// close does; the client gets no acknowledgment either way.
func (s *Server) transfer(r io.Reader, f *os.File, buf []byte) {
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				s.log.WithError(werr).Warn("write to spool file failed")
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) setClient(conn net.Conn) {
	s.mu.Lock()
	s.client = conn
	s.mu.Unlock()
}

func (s *Server) setSpool(f *os.File) {
	s.mu.Lock()
	s.spool = f
	s.mu.Unlock()
}

func (s *Server) closeClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.log.WithError(err).Warn("closing client socket failed")
	}
	s.client = nil
}

func (s *Server) closeSpool() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spool == nil {
		return
	}
	if err := s.spool.Close(); err != nil {
		s.log.WithError(err).Warn("closing spool file failed")
	}
	s.spool = nil
}

// Shutdown closes whatever is currently open, in the order client
// socket, spool file, listener, each at most once. It is safe to call
// concurrently with Run and more than once; only the first call does
// anything. Pending spool data is flushed to disk before the file is
// closed.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.log.Info("shutting down, closing all open descriptors")
		unix.Sync()

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.client != nil {
			if err := s.client.Close(); err != nil {
				s.log.WithError(err).Warn("closing client socket failed")
			}
			s.client = nil
		}
		if s.spool != nil {
			if err := s.spool.Sync(); err != nil {
				s.log.WithError(err).Warn("syncing spool file failed")
			}
			if err := s.spool.Close(); err != nil {
				s.log.WithError(err).Warn("closing spool file failed")
			}
			s.spool = nil
		}
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				s.log.WithError(err).Warn("closing listener failed")
			}
			s.listener = nil
		}

		close(s.done)
	})
}
