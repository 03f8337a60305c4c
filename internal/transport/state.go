package transport

// ServerState represents the lifecycle of the one-shot transfer server
type ServerState int

const (
	ServerIdle ServerState = iota
	ServerListening
	ServerStreaming
	ServerClosed
)

// String returns the string representation of ServerState
func (s ServerState) String() string {
	switch s {
	case ServerIdle:
		return "Idle"
	case ServerListening:
		return "Listening"
	case ServerStreaming:
		return "Streaming"
	case ServerClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ClientState represents the lifecycle of a download
type ClientState int

const (
	ClientIdle ClientState = iota
	ClientConnecting
	ClientReceiving
	ClientDone
	ClientFailed
)

// String returns the string representation of ClientState
func (c ClientState) String() string {
	switch c {
	case ClientIdle:
		return "Idle"
	case ClientConnecting:
		return "Connecting"
	case ClientReceiving:
		return "Receiving"
	case ClientDone:
		return "Done"
	case ClientFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
