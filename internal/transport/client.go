package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"wifitransfer/internal/config"
	"wifitransfer/internal/discovery"
	"wifitransfer/pkg/types"
)

// Client downloads a file from a transfer server
type Client struct {
	config     *config.TransferConfig
	transport  *http.Transport
	httpClient *http.Client

	mu    sync.Mutex
	state ClientState
}

// NewClient creates a client that opens one connection per fetch
func NewClient(cfg *config.TransferConfig) *Client {
	tr := &http.Transport{
		DisableKeepAlives:  true,
		DisableCompression: true,
	}
	return &Client{
		config:     cfg,
		transport:  tr,
		httpClient: &http.Client{Transport: tr},
	}
}

// State returns the current client state
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(state ClientState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Fetch downloads from target into sink, calling onProgress after every chunk.
// On failure whatever was already written stays in sink.
func (c *Client) Fetch(ctx context.Context, target discovery.Target, sink io.Writer, onProgress func(types.ProgressUpdate)) (types.FileMetadata, error) {
	c.setState(ClientConnecting)

	url := "http://" + target.String() + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.setState(ClientFailed)
		return types.FileMetadata{}, fmt.Errorf("%w: failed to create request: %w", ErrTransfer, err)
	}

	log.Printf("Connecting to %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setState(ClientFailed)
		return types.FileMetadata{}, fmt.Errorf("%w: failed to connect to %s: %w", ErrTransfer, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.setState(ClientFailed)
		return types.FileMetadata{}, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	meta := types.FileMetadata{
		Name:     resp.Header.Get(HeaderFileName),
		Size:     resp.ContentLength, // -1 when undeclared
		MimeType: resp.Header.Get(HeaderContentType),
	}
	if meta.Size < 0 {
		meta.Size = types.UnknownSize
	}

	c.setState(ClientReceiving)
	log.Printf("Receiving %q (%s, %d bytes)", meta.Name, meta.MimeType, meta.Size)

	report := func(update types.ProgressUpdate) {
		if onProgress != nil {
			onProgress(update)
		}
	}

	tracker := NewProgressTracker(meta.Size)
	report(tracker.Snapshot())

	buf := make([]byte, c.config.BufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := sink.Write(buf[:n]); err != nil {
				c.setState(ClientFailed)
				return meta, fmt.Errorf("%w: failed to write data: %w", ErrTransfer, err)
			}
			report(tracker.Add(int64(n)))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			c.setState(ClientFailed)
			got := tracker.Snapshot().BytesTransferred
			return meta, fmt.Errorf("%w: stream ended after %d bytes: %w", ErrTransfer, got, rerr)
		}
	}

	if got := tracker.Snapshot().BytesTransferred; meta.HasSize() && got != meta.Size {
		c.setState(ClientFailed)
		return meta, fmt.Errorf("%w: received %d of %d bytes", ErrTransfer, got, meta.Size)
	}

	c.setState(ClientDone)
	return meta, nil
}

// Close drops idle connections. Safe to call more than once.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
