package utils

import (
	"errors"
	"net"
)

var ErrNoLocalAddress = errors.New("no non-loopback IPv4 address found")

// LocalIPv4 returns the first IPv4 address of an interface that is up and not a loopback
func LocalIPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4, nil
			}
		}
	}

	return nil, ErrNoLocalAddress
}

// InterfacesByName resolves interface names; an empty list means all interfaces
func InterfacesByName(names []string) ([]net.Interface, error) {
	if len(names) == 0 {
		return nil, nil
	}

	ifaces := make([]net.Interface, 0, len(names))
	for _, name := range names {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, *iface)
	}
	return ifaces, nil
}
