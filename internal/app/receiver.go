package app

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"wifitransfer/internal/config"
	"wifitransfer/internal/discovery"
	"wifitransfer/internal/lifecycle"
	"wifitransfer/internal/processor"
	"wifitransfer/internal/reporter"
	"wifitransfer/internal/ui"
	"wifitransfer/pkg/types"
)

// ReceiverOptions configures the receiver application behavior
type ReceiverOptions struct {
	SessionID string // Required: id printed by the sender
	DestPath  string // Required: file to write
	Address   string // Optional: sender address, skips discovery together with Port
	Port      int
}

// ReceiverApp implements receiver application logic
type ReceiverApp struct {
	config      *config.Config
	resolver    Resolver
	fetcher     Fetcher
	fileService *processor.FileService
	ui          *ui.ConsoleUI
}

// NewReceiverApp creates a new receiver application. resolver is only used
// when no direct address is given and may be nil otherwise.
func NewReceiverApp(cfg *config.Config, resolver Resolver, fetcher Fetcher, fileService *processor.FileService, ui *ui.ConsoleUI) *ReceiverApp {
	return &ReceiverApp{
		config:      cfg,
		resolver:    resolver,
		fetcher:     fetcher,
		fileService: fileService,
		ui:          ui,
	}
}

// Run locates the sender and downloads the file to opts.DestPath
func (r *ReceiverApp) Run(ctx context.Context, opts *ReceiverOptions) (err error) {
	if opts.DestPath == "" {
		return fmt.Errorf("destination path is required")
	}
	if opts.SessionID == "" {
		return fmt.Errorf("session id is required")
	}

	guard := lifecycle.New()
	guard.OnSignal(func() { r.ui.ShowMessage("\nReceived interrupt signal, shutting down...") })
	ctx = guard.Context(ctx)
	defer guard.Stop()
	defer func() {
		if err := guard.Teardown(); err != nil {
			log.Printf("Error during cleanup: %v", err)
		}
	}()
	defer func() {
		if err != nil && guard.Interrupted() {
			log.Printf("Receive interrupted: %v", err)
			err = nil
		}
	}()
	guard.SetSockets(r.fetcher)

	target, err := r.locate(ctx, guard, opts)
	if err != nil {
		return err
	}

	log.Printf("Preparing to receive file to: %s", opts.DestPath)
	file, err := r.fileService.CreateWriter(opts.DestPath)
	if err != nil {
		return err
	}
	// Partial output is kept on failure
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("Error closing %s: %v", file.Path(), err)
		}
	}()

	progressCh := make(chan types.ProgressUpdate, 64)
	g, gctx := errgroup.WithContext(ctx)

	progress := reporter.NewProgressReporter(r.ui.NewProgress("Receiving", opts.DestPath))
	var last types.ProgressUpdate

	g.Go(func() error {
		last = progress.StartUpdatingProgress(gctx, progressCh)
		return nil
	})
	g.Go(func() error {
		defer close(progressCh)
		meta, err := r.fetcher.Fetch(gctx, target, file, reporter.Forward(gctx, progressCh))
		if err != nil {
			return err
		}
		log.Printf("Received %q (%s), %d bytes written", meta.Name, meta.MimeType, file.Written())
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to receive file: %w", err)
	}

	r.ui.ShowMessage("File received. Exiting")
	r.ui.ShowTransferSummary("received", last)
	return nil
}

// locate returns the sender endpoint, straight from opts when an address was
// given and through discovery otherwise
func (r *ReceiverApp) locate(ctx context.Context, guard *lifecycle.Guard, opts *ReceiverOptions) (discovery.Target, error) {
	if opts.Address != "" {
		log.Printf("Using direct address %s:%d, skipping discovery", opts.Address, opts.Port)
		return discovery.Target{Address: opts.Address, Port: opts.Port}, nil
	}
	if r.resolver == nil {
		return discovery.Target{}, fmt.Errorf("no sender address given and discovery is unavailable")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	guard.SetDiscovery(cancel)

	name := r.config.Discovery.InstanceName(opts.SessionID)
	r.ui.ShowMessage(fmt.Sprintf("Looking for %q on the local network...", name))

	record, err := r.resolver.Watch(watchCtx, discovery.MatchName(name))
	if err != nil {
		return discovery.Target{}, fmt.Errorf("failed to find sender: %w", err)
	}

	r.ui.ShowSessionFound(record)
	return record.Target(), nil
}
