package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Retractor withdraws a published advertisement
type Retractor interface {
	Retract()
}

// Guard owns the resources of one send or receive run and releases them
// exactly once, whether the run completes, fails or is interrupted.
//
// Teardown order: retract advertisement, close sockets, release discovery.
type Guard struct {
	mu        sync.Mutex
	ad        Retractor
	sockets   []io.Closer
	discovery context.CancelFunc

	once     sync.Once
	err      error
	released bool

	onSignal    func()
	interrupted bool

	sigCh    chan os.Signal
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an empty guard
func New() *Guard {
	return &Guard{
		stopCh: make(chan struct{}),
	}
}

// SetAdvertisement registers the advertisement to retract, replacing any
// previous one. After Teardown it is retracted right away.
func (g *Guard) SetAdvertisement(r Retractor) {
	g.mu.Lock()
	if !g.released {
		g.ad = r
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	if r != nil {
		r.Retract()
	}
}

// SetSockets adds listeners or connections to close. After Teardown they are
// closed right away.
func (g *Guard) SetSockets(closers ...io.Closer) {
	g.mu.Lock()
	if !g.released {
		for _, c := range closers {
			if c != nil {
				g.sockets = append(g.sockets, c)
			}
		}
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			log.Printf("Failed to close socket after teardown: %v", err)
		}
	}
}

// SetDiscovery registers the cancel function of a running discovery watch.
// After Teardown it is called right away.
func (g *Guard) SetDiscovery(cancel context.CancelFunc) {
	g.mu.Lock()
	if !g.released {
		g.discovery = cancel
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// OnSignal sets the function called when SIGINT or SIGTERM arrives, before teardown
func (g *Guard) OnSignal(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onSignal = fn
}

// Interrupted reports whether a signal ended the run
func (g *Guard) Interrupted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interrupted
}

// Teardown releases everything registered. Only the first call does any work;
// later calls return nil.
func (g *Guard) Teardown() error {
	first := false
	g.once.Do(func() {
		first = true

		g.mu.Lock()
		ad, sockets, discovery := g.ad, g.sockets, g.discovery
		g.ad, g.sockets, g.discovery = nil, nil, nil
		g.released = true
		g.mu.Unlock()

		if ad != nil {
			ad.Retract()
		}

		var errs []error
		for _, c := range sockets {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close socket: %w", err))
			}
		}

		if discovery != nil {
			discovery()
		}

		g.err = errors.Join(errs...)
		if g.err != nil {
			log.Printf("Teardown finished with errors: %v", g.err)
		}
	})
	if !first {
		return nil
	}
	return g.err
}

// Context returns a child of parent that is cancelled on SIGINT or SIGTERM.
// A signal also triggers Teardown.
func (g *Guard) Context(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if g.sigCh == nil {
		g.sigCh = make(chan os.Signal, 1)
		signal.Notify(g.sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	sigCh := g.sigCh
	g.mu.Unlock()

	go func() {
		defer cancel()
		select {
		case <-sigCh:
			g.mu.Lock()
			g.interrupted = true
			notify := g.onSignal
			g.mu.Unlock()
			if notify != nil {
				notify()
			} else {
				log.Println("Received interrupt signal, shutting down...")
			}
			cancel()
			if err := g.Teardown(); err != nil {
				log.Printf("Error during shutdown: %v", err)
			}
		case <-ctx.Done():
		case <-g.stopCh:
		}
	}()

	return ctx
}

// Stop unregisters signal handling and cancels every context handed out by
// Context. Safe to call more than once.
func (g *Guard) Stop() {
	g.stopOnce.Do(func() {
		g.mu.Lock()
		if g.sigCh != nil {
			signal.Stop(g.sigCh)
		}
		g.mu.Unlock()
		close(g.stopCh)
	})
}
