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
	"wifitransfer/internal/transport"
	"wifitransfer/internal/ui"
	"wifitransfer/pkg/types"
	"wifitransfer/pkg/utils"
)

// SenderOptions configures the sender application behavior
type SenderOptions struct {
	FilePath string // Required: path to file to send
	Port     int    // TCP port to serve on, 0 picks a free one
}

// SenderApp implements sender application logic
type SenderApp struct {
	config      *config.Config
	publisher   Publisher
	prober      Prober
	fileService *processor.FileService
	ui          *ui.ConsoleUI
}

// NewSenderApp creates a new sender application
func NewSenderApp(
	cfg *config.Config,
	publisher Publisher,
	prober Prober,
	fileService *processor.FileService,
	ui *ui.ConsoleUI,
) *SenderApp {
	return &SenderApp{
		config:      cfg,
		publisher:   publisher,
		prober:      prober,
		fileService: fileService,
		ui:          ui,
	}
}

// Run advertises the file and serves it to the first receiver that connects
func (s *SenderApp) Run(ctx context.Context, opts *SenderOptions) (err error) {
	if opts.FilePath == "" {
		return fmt.Errorf("file path is required")
	}

	meta, err := s.fileService.CreateMetadata(opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	log.Printf("Preparing to send %s (%s, %s)", meta.Name, meta.MimeType, utils.FormatFileSize(meta.Size))

	guard := lifecycle.New()
	guard.OnSignal(func() { s.ui.ShowMessage("\nReceived interrupt signal, shutting down...") })
	ctx = guard.Context(ctx)
	defer guard.Stop()
	defer func() {
		if err := guard.Teardown(); err != nil {
			log.Printf("Error during cleanup: %v", err)
		}
	}()
	defer func() {
		if err != nil && guard.Interrupted() {
			log.Printf("Send interrupted: %v", err)
			err = nil
		}
	}()

	progressCh := make(chan types.ProgressUpdate, 64)
	g, gctx := errgroup.WithContext(ctx)

	server := transport.NewServer(&s.config.Transfer, s.fileService, meta, reporter.Forward(gctx, progressCh))
	if err := server.Listen(opts.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	guard.SetSockets(server)

	sessionID, handle, err := s.publish(ctx, server.Port(), meta)
	if err != nil {
		return err
	}
	guard.SetAdvertisement(handle)

	fallback := ""
	if ip, err := utils.LocalIPv4(); err == nil {
		fallback = ip.String()
	} else {
		log.Printf("No fallback address available: %v", err)
	}
	s.ui.ShowSendInstructions(sessionID, server.Port(), meta, fallback)

	progress := reporter.NewProgressReporter(s.ui.NewProgress("Sending", meta.Name))
	var last types.ProgressUpdate

	g.Go(func() error {
		last = progress.StartUpdatingProgress(gctx, progressCh)
		return nil
	})
	g.Go(func() error {
		defer close(progressCh)
		return server.Serve(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	s.ui.ShowMessage("File received. Shutting down server")
	s.ui.ShowTransferSummary("sent", last)
	return nil
}

// publish picks a session id nobody on the network is advertising yet and
// registers it. Each candidate is probed before registering.
func (s *SenderApp) publish(ctx context.Context, port int, meta types.FileMetadata) (string, *discovery.ServiceHandle, error) {
	for attempt := 1; attempt <= s.config.Session.MaxAttempts; attempt++ {
		sessionID, err := utils.GenerateCode(s.config.Session.IDLength)
		if err != nil {
			return "", nil, fmt.Errorf("failed to generate session id: %w", err)
		}

		name := s.config.Discovery.InstanceName(sessionID)
		taken, err := s.prober.Probe(ctx, name, "", s.config.Discovery.CollisionProbe)
		if err != nil {
			return "", nil, fmt.Errorf("failed to check for session collisions: %w", err)
		}
		if taken {
			log.Printf("Session id %s is already in use (attempt %d/%d)", sessionID, attempt, s.config.Session.MaxAttempts)
			continue
		}

		handle, err := s.publisher.Publish(sessionID, port, meta)
		if err != nil {
			return "", nil, err
		}
		return sessionID, handle, nil
	}
	return "", nil, ErrSessionCollision
}
