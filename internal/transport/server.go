package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"wifitransfer/internal/config"
	"wifitransfer/internal/processor"
	"wifitransfer/pkg/types"
)

// Server streams one file to the first client that connects, then shuts down
type Server struct {
	config      *config.TransferConfig
	fileService *processor.FileService
	meta        types.FileMetadata
	onProgress  func(types.ProgressUpdate)

	mu       sync.Mutex
	state    ServerState
	listener net.Listener
	addr     net.Addr
	conn     net.Conn
}

// NewServer creates a server for the file described by meta. onProgress may be nil.
func NewServer(cfg *config.TransferConfig, fileService *processor.FileService, meta types.FileMetadata, onProgress func(types.ProgressUpdate)) *Server {
	return &Server{
		config:      cfg,
		fileService: fileService,
		meta:        meta,
		onProgress:  onProgress,
	}
}

// Listen binds the TCP port. There is no fallback port.
func (s *Server) Listen(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ServerIdle {
		return fmt.Errorf("cannot listen in state %s", s.state)
	}

	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPortInUse, err)
	}

	s.listener = ln
	s.addr = ln.Addr()
	s.state = ServerListening
	log.Printf("Listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound TCP port, or 0 before Listen
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// State returns the current server state
func (s *Server) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Serve accepts exactly one connection and streams the file over it.
// The listening socket is closed as soon as that connection is accepted.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case ServerListening:
	case ServerStreaming, ServerClosed:
		s.mu.Unlock()
		return ErrAlreadyServed
	default:
		s.mu.Unlock()
		return ErrNotListening
	}
	ln := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		_ = s.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to accept connection: %w", err)
	}

	s.mu.Lock()
	if s.state == ServerClosed {
		s.mu.Unlock()
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrAlreadyServed
	}
	s.conn = conn
	s.state = ServerStreaming
	if err := s.closeListenerLocked(); err != nil {
		log.Printf("Failed to close listener: %v", err)
	}
	s.mu.Unlock()
	defer s.Close()

	log.Printf("Accepted connection from %s", conn.RemoteAddr())

	if err := s.stream(conn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *Server) stream(conn net.Conn) error {
	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return fmt.Errorf("%w: failed to read request: %w", ErrTransfer, err)
	}
	if req.Body != nil {
		req.Body.Close()
	}
	log.Printf("%s %s from %s", req.Method, req.URL, conn.RemoteAddr())

	file, size, err := s.fileService.OpenReader(s.meta.Path)
	if err != nil {
		s.writeError(conn, http.StatusInternalServerError)
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer file.Close()

	mimeType := s.meta.MimeType
	if mimeType == "" {
		mimeType = processor.DetectMimeType(s.meta.Name)
	}

	header := http.Header{}
	header.Set(HeaderContentType, mimeType)
	header.Set(HeaderContentLength, strconv.FormatInt(size, 10))
	header.Set(HeaderFileName, s.meta.Name)
	header.Set(HeaderConnection, "close")

	w := bufio.NewWriterSize(conn, s.config.BufferSize)
	if _, err := io.WriteString(w, "HTTP/1.1 200 OK\r\n"); err != nil {
		return fmt.Errorf("%w: failed to write status: %w", ErrTransfer, err)
	}
	if err := header.Write(w); err != nil {
		return fmt.Errorf("%w: failed to write headers: %w", ErrTransfer, err)
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("%w: failed to write headers: %w", ErrTransfer, err)
	}
	if req.Method == http.MethodHead {
		return w.Flush()
	}

	tracker := NewProgressTracker(size)
	s.report(tracker.Snapshot())

	buf := make([]byte, s.config.BufferSize)
	var sent int64
	for sent < size {
		n, rerr := file.Read(buf[:min(int64(len(buf)), size-sent)])
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("%w: failed to write data: %w", ErrTransfer, err)
			}
			sent += int64(n)
			s.report(tracker.Add(int64(n)))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("%w: failed to read file: %w", ErrSourceUnavailable, rerr)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: failed to write data: %w", ErrTransfer, err)
	}
	if sent < size {
		return fmt.Errorf("%w: file shrank to %d of %d bytes", ErrSourceUnavailable, sent, size)
	}

	s.linger(conn)
	return nil
}

// linger half-closes the connection and waits for the peer to hang up
func (s *Server) linger(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			log.Printf("Failed to half-close connection: %v", err)
			return
		}
	}
	if s.config.LingerTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.LingerTimeout))
	}
	if _, err := io.Copy(io.Discard, conn); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.Printf("Peer did not close within %v", s.config.LingerTimeout)
			return
		}
		log.Printf("Error waiting for peer to close: %v", err)
	}
}

func (s *Server) writeError(conn net.Conn, status int) {
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", status, http.StatusText(status))
	if _, err := io.WriteString(conn, resp); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

func (s *Server) report(update types.ProgressUpdate) {
	if s.onProgress != nil {
		s.onProgress(update)
	}
}

// Close releases the listener and any active connection. Safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ServerClosed {
		return nil
	}
	s.state = ServerClosed

	var errs []error
	if err := s.closeListenerLocked(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close listener: %w", err))
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		s.conn = nil
	}
	return errors.Join(errs...)
}

func (s *Server) closeListenerLocked() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
