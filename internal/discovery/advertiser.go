package discovery

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"

	"wifitransfer/internal/config"
	"wifitransfer/pkg/types"
	"wifitransfer/pkg/utils"
)

// Registration is a live advertisement
type Registration interface {
	Shutdown()
}

// Registrar publishes DNS-SD instances on the local network
type Registrar interface {
	Register(instance, service, domain string, port int, text []string, ifaces []net.Interface) (Registration, error)
}

type zeroconfRegistrar struct{}

func (zeroconfRegistrar) Register(instance, service, domain string, port int, text []string, ifaces []net.Interface) (Registration, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, ifaces)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// Advertiser publishes transfer sessions over mDNS
type Advertiser struct {
	config    *config.DiscoveryConfig
	registrar Registrar
}

// NewAdvertiser creates an advertiser. A nil registrar publishes through zeroconf.
func NewAdvertiser(cfg *config.DiscoveryConfig, registrar Registrar) *Advertiser {
	if registrar == nil {
		registrar = zeroconfRegistrar{}
	}
	return &Advertiser{
		config:    cfg,
		registrar: registrar,
	}
}

// Publish announces sessionID on port until the returned handle is retracted
func (a *Advertiser) Publish(sessionID string, port int, meta types.FileMetadata) (*ServiceHandle, error) {
	if !utils.IsValidCode(sessionID) {
		return nil, fmt.Errorf("%w: invalid session id %q", ErrAdvertise, sessionID)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid port %d", ErrAdvertise, port)
	}

	ifaces, err := utils.InterfacesByName(a.config.Interfaces)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve interfaces: %v", ErrAdvertise, err)
	}

	token := uuid.NewString()
	text := []string{
		TxtVersionKey + "=" + txtVersion,
		TxtSenderKey + "=" + token,
	}
	if meta.Name != "" {
		text = append(text, TxtFileKey+"="+meta.Name)
	}
	if meta.HasSize() {
		text = append(text, TxtSizeKey+"="+strconv.FormatInt(meta.Size, 10))
	}

	name := a.config.InstanceName(sessionID)
	reg, err := a.registrar.Register(name, a.config.ServiceType, a.config.Domain, port, text, ifaces)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdvertise, err)
	}

	log.Printf("Advertising %q as %s on port %d", name, a.config.ServiceType, port)
	return &ServiceHandle{name: name, token: token, reg: reg}, nil
}

// ServiceHandle controls a published session
type ServiceHandle struct {
	name  string
	token string
	reg   Registration
	once  sync.Once
}

// Name returns the advertised instance name
func (h *ServiceHandle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Token returns the sender token published in the TXT records
func (h *ServiceHandle) Token() string {
	if h == nil {
		return ""
	}
	return h.token
}

// Retract withdraws the advertisement. Safe to call more than once.
func (h *ServiceHandle) Retract() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.reg != nil {
			h.reg.Shutdown()
		}
		log.Printf("Retracted advertisement %q", h.name)
	})
}
