package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

var (
	ErrAdvertise       = errors.New("failed to advertise session")
	ErrBrowse          = errors.New("failed to browse for sessions")
	ErrNotFound        = errors.New("session not found")
	ErrDiscoveryClosed = errors.New("discovery stopped before the session was found")
	ErrInvalidRecord   = errors.New("invalid service record")
)

// TXT record keys published alongside every session
const (
	TxtVersionKey = "txtv"
	TxtSenderKey  = "sender"
	TxtFileKey    = "file"
	TxtSizeKey    = "size"

	txtVersion = "1"
)

// ServiceRecord is a resolved DNS-SD instance
type ServiceRecord struct {
	Name      string
	Service   string
	Port      int
	Addresses []net.IP // IPv4 first, then IPv6
	Text      map[string]string
}

// Target is the network endpoint of a sender
type Target struct {
	Address string
	Port    int
}

// String returns host:port, bracketing IPv6 hosts
func (t Target) String() string {
	return net.JoinHostPort(t.Address, strconv.Itoa(t.Port))
}

// Target returns the endpoint to connect to. Only the first address is used.
func (r ServiceRecord) Target() Target {
	return Target{Address: r.Addresses[0].String(), Port: r.Port}
}

// Sender returns the publisher token carried in the TXT records
func (r ServiceRecord) Sender() string {
	return r.Text[TxtSenderKey]
}

// FileName returns the advertised file name, if any
func (r ServiceRecord) FileName() string {
	return r.Text[TxtFileKey]
}

// FileSize returns the advertised size, or -1 when absent or malformed
func (r ServiceRecord) FileSize() int64 {
	size, err := strconv.ParseInt(r.Text[TxtSizeKey], 10, 64)
	if err != nil || size < 0 {
		return -1
	}
	return size
}

// RecordFromEntry validates a browse result and converts it to a ServiceRecord
func RecordFromEntry(entry *zeroconf.ServiceEntry) (ServiceRecord, error) {
	if entry == nil {
		return ServiceRecord{}, fmt.Errorf("%w: empty entry", ErrInvalidRecord)
	}
	if entry.Port <= 0 || entry.Port > 65535 {
		return ServiceRecord{}, fmt.Errorf("%w: %q has port %d", ErrInvalidRecord, entry.Instance, entry.Port)
	}

	addrs := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		if ip != nil {
			addrs = append(addrs, ip)
		}
	}
	for _, ip := range entry.AddrIPv6 {
		if ip != nil {
			addrs = append(addrs, ip)
		}
	}
	if len(addrs) == 0 {
		return ServiceRecord{}, fmt.Errorf("%w: %q has no addresses", ErrInvalidRecord, entry.Instance)
	}

	return ServiceRecord{
		Name:      UnescapeInstance(entry.Instance),
		Service:   entry.Service,
		Port:      entry.Port,
		Addresses: addrs,
		Text:      parseText(entry.Text),
	}, nil
}

// MatchName returns a matcher for an exact instance name
func MatchName(name string) func(ServiceRecord) bool {
	return func(r ServiceRecord) bool {
		return r.Name == name
	}
}

// UnescapeInstance undoes DNS presentation-format escaping (\X and \DDD)
func UnescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			n, _ := strconv.Atoi(s[i+1 : i+4])
			if n <= 255 {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func parseText(txt []string) map[string]string {
	out := make(map[string]string, len(txt))
	for _, kv := range txt {
		if kv == "" {
			continue
		}
		key, value, _ := strings.Cut(kv, "=")
		// first occurrence wins
		if _, seen := out[key]; !seen {
			out[key] = value
		}
	}
	return out
}
