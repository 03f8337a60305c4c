package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/grandcat/zeroconf"

	"wifitransfer/internal/config"
	"wifitransfer/pkg/utils"
)

// Browser streams service entries for a service type until ctx is done.
// *zeroconf.Resolver satisfies it.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Resolver locates a single session among everything advertised on the LAN
type Resolver struct {
	config     *config.DiscoveryConfig
	newBrowser func() (Browser, error)
}

// NewResolver creates a resolver. With a nil browser every lookup opens a
// fresh zeroconf resolver, since those stop working once their browse ends.
func NewResolver(cfg *config.DiscoveryConfig, browser Browser) *Resolver {
	r := &Resolver{config: cfg}
	if browser != nil {
		r.newBrowser = func() (Browser, error) { return browser, nil }
	} else {
		r.newBrowser = r.zeroconfBrowser
	}
	return r
}

func (r *Resolver) zeroconfBrowser() (Browser, error) {
	ifaces, err := utils.InterfacesByName(r.config.Interfaces)
	if err != nil {
		return nil, err
	}
	var opts []zeroconf.ClientOption
	if len(ifaces) > 0 {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return zeroconf.NewResolver(opts...)
}

// Find waits for the session advertised under the exact instance name
func (r *Resolver) Find(ctx context.Context, name string) (ServiceRecord, error) {
	return r.Watch(ctx, MatchName(name))
}

// Watch browses until a record satisfies match. Invalid and non-matching
// records are skipped. The wait is bounded by the configured resolve timeout
// when it is non-zero.
func (r *Resolver) Watch(ctx context.Context, match func(ServiceRecord) bool) (ServiceRecord, error) {
	return r.watch(ctx, r.config.ResolveTimeout, match)
}

// Probe reports whether name is advertised during window. It must run before
// our own record is registered: zeroconf hands out each instance name once
// per browse, so a rival that shares our name is never seen after our own
// record. With an empty token every record under name counts; otherwise
// records carrying token are treated as ours and ignored.
func (r *Resolver) Probe(ctx context.Context, name, token string, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, nil
	}
	_, err := r.watch(ctx, window, func(rec ServiceRecord) bool {
		return rec.Name == name && (token == "" || rec.Sender() != token)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDiscoveryClosed):
		return false, nil
	default:
		return false, err
	}
}

func (r *Resolver) watch(parent context.Context, timeout time.Duration, match func(ServiceRecord) bool) (ServiceRecord, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	browser, err := r.newBrowser()
	if err != nil {
		return ServiceRecord{}, fmt.Errorf("%w: %v", ErrBrowse, err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := browser.Browse(ctx, r.config.ServiceType, r.config.Domain, entries); err != nil {
		return ServiceRecord{}, fmt.Errorf("%w: %v", ErrBrowse, err)
	}

	stopped := func() error {
		if err := parent.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w after %v", ErrNotFound, timeout)
	}

	for {
		select {
		case <-ctx.Done():
			return ServiceRecord{}, stopped()
		case entry, ok := <-entries:
			if !ok {
				if ctx.Err() != nil {
					return ServiceRecord{}, stopped()
				}
				return ServiceRecord{}, ErrDiscoveryClosed
			}
			record, err := RecordFromEntry(entry)
			if err != nil {
				log.Printf("Skipping record: %v", err)
				continue
			}
			if match(record) {
				return record, nil
			}
		}
	}
}
