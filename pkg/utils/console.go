package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// AskForConfirmation prints prompt and waits for a single line answer.
// Only "y" (case-insensitive) counts as a yes.
func AskForConfirmation(ctx context.Context, in io.Reader, out io.Writer, prompt string) (bool, error) {
	scanner := bufio.NewScanner(in)
	inputCh := make(chan string, 1)
	errCh := make(chan error, 1)

	fmt.Fprintln(out, prompt)
	go func() {
		if scanner.Scan() {
			inputCh <- strings.TrimSpace(scanner.Text())
			return
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()

	// Wait for either input or context cancellation
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errCh:
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read answer: %w", err)
	case answer := <-inputCh:
		return strings.EqualFold(answer, "y"), nil
	}
}
