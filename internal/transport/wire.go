package transport

import "errors"

// Response headers describing the streamed file
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderFileName      = "X-File-Name"
	HeaderConnection    = "Connection"
)

var (
	ErrPortInUse         = errors.New("port unavailable")
	ErrAlreadyServed     = errors.New("server already accepted its connection")
	ErrNotListening      = errors.New("server is not listening")
	ErrSourceUnavailable = errors.New("source file unavailable")
	ErrTransfer          = errors.New("transfer failed")
	ErrUnexpectedStatus  = errors.New("unexpected response status")
)
