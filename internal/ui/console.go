package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"wifitransfer/internal/discovery"
	"wifitransfer/pkg/types"
	"wifitransfer/pkg/utils"
)

// ConsoleUI prints operator-facing output
type ConsoleUI struct {
	in       io.Reader
	out      io.Writer
	progress io.Writer
	binary   string
}

// NewConsoleUI creates a console UI on stdin/stdout, with progress bars on stderr
func NewConsoleUI(binary string) *ConsoleUI {
	return NewConsoleUIWithIO(binary, os.Stdin, os.Stdout, os.Stderr)
}

// NewConsoleUIWithIO creates a console UI on the given streams
func NewConsoleUIWithIO(binary string, in io.Reader, out, progress io.Writer) *ConsoleUI {
	return &ConsoleUI{
		in:       in,
		out:      out,
		progress: progress,
		binary:   binary,
	}
}

// ShowMessage displays a message to the user
func (c *ConsoleUI) ShowMessage(message string) {
	fmt.Fprintln(c.out, message)
}

// NewProgress creates a progress bar for one transfer
func (c *ConsoleUI) NewProgress(operation, filename string) *ProgressUI {
	return NewProgressUI(c.progress, operation, filename)
}

// ConfirmOverwrite asks before replacing an existing output file
func (c *ConsoleUI) ConfirmOverwrite(ctx context.Context) (bool, error) {
	return utils.AskForConfirmation(ctx, c.in, c.out, "Output file already exists. Are you sure you want to do this? y/n")
}

// ShowSendInstructions prints the session id and how to receive it
func (c *ConsoleUI) ShowSendInstructions(sessionID string, port int, meta types.FileMetadata, fallback string) {
	fmt.Fprintln(c.out, "Session published. Waiting for the receiver to connect.")
	if fallback != "" {
		fmt.Fprintf(c.out, "If discovery does not work, the server is listening on %s:%d\n", fallback, port)
	}
	fmt.Fprintf(c.out, "ID is: %s\n", sessionID)
	fmt.Fprintf(c.out, "Example command: %s accept -i %s --out %s\n", c.binary, sessionID, meta.Name)
	if fallback != "" {
		fmt.Fprintf(c.out, "Example command without discovery: %s accept -i %s -a %s -p %d --out %s\n",
			c.binary, sessionID, fallback, port, meta.Name)
	}
}

// ShowSessionFound prints what the matched record advertises
func (c *ConsoleUI) ShowSessionFound(record discovery.ServiceRecord) {
	fmt.Fprintln(c.out, "Found the right server. Downloading file.")
	if name := record.FileName(); name != "" {
		fmt.Fprintf(c.out, "+ File: %s (%s)\n", name, utils.FormatFileSize(record.FileSize()))
	}
	fmt.Fprintf(c.out, "+ Sender: %s\n", record.Target())
}

// ShowTransferSummary displays a summary of the completed transfer
func (c *ConsoleUI) ShowTransferSummary(verb string, update types.ProgressUpdate) {
	fmt.Fprintf(c.out, "=============================================\n")
	fmt.Fprintf(c.out, "File transfer completed successfully!\n")
	fmt.Fprintf(c.out, "+ Total bytes %s: %s\n", verb, utils.FormatFileSize(update.BytesTransferred))
	fmt.Fprintf(c.out, "+ Transfer time: %s\n", update.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(c.out, "+ Average throughput: %.2f MB/s\n", update.Throughput/(1024*1024))
	fmt.Fprintf(c.out, "=============================================\n")
}
