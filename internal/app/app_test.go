package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"wifitransfer/internal/config"
	"wifitransfer/internal/discovery"
	"wifitransfer/internal/processor"
	"wifitransfer/internal/transport"
	"wifitransfer/internal/ui"
	"wifitransfer/pkg/types"
)

type registration struct {
	instance string
	port     int
	text     []string
	mu       sync.Mutex
	retracts int
}

func (r *registration) Shutdown() {
	r.mu.Lock()
	r.retracts++
	r.mu.Unlock()
}

func (r *registration) retracted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retracts
}

type fakeRegistrar struct {
	mu   sync.Mutex
	regs []*registration
	ch   chan *registration
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{ch: make(chan *registration, 8)}
}

func (f *fakeRegistrar) Register(instance, service, domain string, port int, text []string, ifaces []net.Interface) (discovery.Registration, error) {
	reg := &registration{instance: instance, port: port, text: text}
	f.mu.Lock()
	f.regs = append(f.regs, reg)
	f.mu.Unlock()
	f.ch <- reg
	return reg, nil
}

type fakeProber struct {
	mu    sync.Mutex
	taken []bool
	calls int
	names []string

	registrar  *fakeRegistrar // when set, records how many names were registered at each probe
	registered []int
}

func (f *fakeProber) Probe(ctx context.Context, name, token string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.names = append(f.names, name)
	if f.registrar != nil {
		f.registrar.mu.Lock()
		f.registered = append(f.registered, len(f.registrar.regs))
		f.registrar.mu.Unlock()
	}
	if len(f.taken) == 0 {
		return false, nil
	}
	taken := f.taken[0]
	f.taken = f.taken[1:]
	return taken, nil
}

type staticBrowser struct {
	entries []*zeroconf.ServiceEntry
}

func (b *staticBrowser) Browse(ctx context.Context, service, domain string, out chan<- *zeroconf.ServiceEntry) error {
	go func() {
		for _, e := range b.entries {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

type forbiddenResolver struct {
	t *testing.T
}

func (f forbiddenResolver) Watch(ctx context.Context, match func(discovery.ServiceRecord) bool) (discovery.ServiceRecord, error) {
	f.t.Error("discovery used although a direct address was given")
	return discovery.ServiceRecord{}, errors.New("unexpected discovery")
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Discovery.CollisionProbe = 0
	cfg.Discovery.ResolveTimeout = 5 * time.Second
	cfg.Transfer.BufferSize = 4096
	cfg.Transfer.LingerTimeout = 2 * time.Second
	return cfg
}

func quietUI() *ui.ConsoleUI {
	return ui.NewConsoleUIWithIO("wifi-transfer", strings.NewReader(""), io.Discard, io.Discard)
}

func writeSource(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestSendAndAcceptThroughDiscovery(t *testing.T) {
	cfg := testConfig()
	src, data := writeSource(t, "report.pdf", 300_000)

	registrar := newFakeRegistrar()
	sender := NewSenderApp(cfg, discovery.NewAdvertiser(&cfg.Discovery, registrar), &fakeProber{}, processor.NewFileService(), quietUI())

	sendErr := make(chan error, 1)
	go func() { sendErr <- sender.Run(context.Background(), &SenderOptions{FilePath: src}) }()

	var reg *registration
	select {
	case reg = <-registrar.ch:
	case err := <-sendErr:
		t.Fatalf("sender exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender never advertised")
	}

	sessionID := strings.TrimPrefix(reg.instance, cfg.Discovery.InstancePrefix)
	if len(sessionID) != 5 {
		t.Fatalf("session id %q is not 5 characters", sessionID)
	}

	// Other sessions on the network come first and must be ignored
	var entries []*zeroconf.ServiceEntry
	for _, name := range []string{cfg.Discovery.InstanceName("abc"), cfg.Discovery.InstanceName("def"), reg.instance} {
		e := zeroconf.NewServiceEntry(strings.ReplaceAll(name, " ", `\ `), "_http._tcp", "local.")
		e.AddrIPv4 = []net.IP{net.ParseIP("127.0.0.1")}
		e.Port = 1 // unused endpoint
		if name == reg.instance {
			e.Port = reg.port
			e.Text = reg.text
		}
		entries = append(entries, e)
	}

	dest := filepath.Join(t.TempDir(), "copy.pdf")
	client := transport.NewClient(&cfg.Transfer)
	receiver := NewReceiverApp(cfg, discovery.NewResolver(&cfg.Discovery, &staticBrowser{entries: entries}), client, processor.NewFileService(), quietUI())

	if err := receiver.Run(context.Background(), &ReceiverOptions{SessionID: sessionID, DestPath: dest}); err != nil {
		t.Fatalf("receiver: %v", err)
	}

	select {
	case err := <-sendErr:
		if err != nil {
			t.Fatalf("sender: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not exit after the transfer")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("received %d bytes that differ from the %d sent", len(got), len(data))
	}
	if reg.retracted() != 1 {
		t.Errorf("advertisement retracted %d times", reg.retracted())
	}
}

func TestAcceptDirectAddressSkipsDiscovery(t *testing.T) {
	cfg := testConfig()
	src, data := writeSource(t, "notes.txt", 10_000)

	fs := processor.NewFileService()
	meta, err := fs.CreateMetadata(src)
	if err != nil {
		t.Fatal(err)
	}
	server := transport.NewServer(&cfg.Transfer, fs, meta, nil)
	if err := server.Listen(0); err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	go server.Serve(context.Background())

	dest := filepath.Join(t.TempDir(), "notes.txt")
	receiver := NewReceiverApp(cfg, forbiddenResolver{t: t}, transport.NewClient(&cfg.Transfer), fs, quietUI())
	err = receiver.Run(context.Background(), &ReceiverOptions{
		SessionID: "a1B2c",
		DestPath:  dest,
		Address:   "127.0.0.1",
		Port:      server.Port(),
	})
	if err != nil {
		t.Fatalf("receiver: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("downloaded file differs")
	}
}

func TestAcceptNotFound(t *testing.T) {
	cfg := testConfig()
	cfg.Discovery.ResolveTimeout = 50 * time.Millisecond

	dest := filepath.Join(t.TempDir(), "never.bin")
	receiver := NewReceiverApp(cfg, discovery.NewResolver(&cfg.Discovery, &staticBrowser{}), transport.NewClient(&cfg.Transfer), processor.NewFileService(), quietUI())

	err := receiver.Run(context.Background(), &ReceiverOptions{SessionID: "zzzzz", DestPath: dest})
	if !errors.Is(err, discovery.ErrNotFound) {
		t.Fatalf("got %v, want %v", err, discovery.ErrNotFound)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination created although no sender was found")
	}
}

func TestAcceptKeepsPartialFile(t *testing.T) {
	cfg := testConfig()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		conn.Read(buf)
		io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n0123456789")
	}()

	dest := filepath.Join(t.TempDir(), "partial.bin")
	receiver := NewReceiverApp(cfg, nil, transport.NewClient(&cfg.Transfer), processor.NewFileService(), quietUI())
	err = receiver.Run(context.Background(), &ReceiverOptions{
		SessionID: "a1B2c",
		DestPath:  dest,
		Address:   "127.0.0.1",
		Port:      ln.Addr().(*net.TCPAddr).Port,
	})
	if !errors.Is(err, transport.ErrTransfer) {
		t.Fatalf("got %v, want %v", err, transport.ErrTransfer)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("partial file removed: %v", err)
	}
	if string(got) != "0123456789" {
		t.Errorf("partial file = %q", got)
	}
}

func TestPublishRerollsOnCollision(t *testing.T) {
	cfg := testConfig()
	cfg.Discovery.CollisionProbe = time.Millisecond

	registrar := newFakeRegistrar()
	prober := &fakeProber{taken: []bool{true, true, false}, registrar: registrar}
	s := NewSenderApp(cfg, discovery.NewAdvertiser(&cfg.Discovery, registrar), prober, processor.NewFileService(), quietUI())

	id, handle, err := s.publish(context.Background(), 4321, types.FileMetadata{Name: "a.txt", Size: 1})
	if err != nil {
		t.Fatal(err)
	}
	if handle.Name() != cfg.Discovery.InstanceName(id) {
		t.Errorf("handle %q does not match id %q", handle.Name(), id)
	}
	if len(registrar.regs) != 1 || prober.calls != 3 {
		t.Fatalf("registrations=%d probes=%d", len(registrar.regs), prober.calls)
	}
	if registrar.regs[0].instance != prober.names[2] {
		t.Errorf("registered %q, last probed %q", registrar.regs[0].instance, prober.names[2])
	}
	for i, n := range prober.registered {
		if n != 0 {
			t.Errorf("probe %d ran after %d registrations", i, n)
		}
	}
	if registrar.regs[0].retracted() != 0 {
		t.Error("published session retracted")
	}
}

func TestPublishGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxAttempts = 2

	registrar := newFakeRegistrar()
	prober := &fakeProber{taken: []bool{true, true, true}}
	s := NewSenderApp(cfg, discovery.NewAdvertiser(&cfg.Discovery, registrar), prober, processor.NewFileService(), quietUI())

	_, _, err := s.publish(context.Background(), 4321, types.FileMetadata{})
	if !errors.Is(err, ErrSessionCollision) {
		t.Fatalf("got %v, want %v", err, ErrSessionCollision)
	}
	if len(registrar.regs) != 0 || prober.calls != 2 {
		t.Errorf("registrations=%d probes=%d", len(registrar.regs), prober.calls)
	}
}

// rivalBrowser advertises a rival under every name it is asked about, once
// per browse like zeroconf does
type rivalBrowser struct {
	cfg *config.DiscoveryConfig
	ids chan string
}

func (b *rivalBrowser) Browse(ctx context.Context, service, domain string, out chan<- *zeroconf.ServiceEntry) error {
	id := <-b.ids
	e := zeroconf.NewServiceEntry(b.cfg.InstanceName(id), service, domain)
	e.Port = 9000
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.99")}
	e.Text = []string{"txtv=1", "sender=rival-token"}
	go func() {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}()
	return nil
}

func TestProbeSeesRivalBeforeRegistering(t *testing.T) {
	cfg := testConfig()
	b := &rivalBrowser{cfg: &cfg.Discovery, ids: make(chan string, 1)}
	r := discovery.NewResolver(&cfg.Discovery, b)

	b.ids <- "clash"
	taken, err := r.Probe(context.Background(), cfg.Discovery.InstanceName("clash"), "", time.Second)
	if err != nil || !taken {
		t.Fatalf("rival not detected: taken=%v err=%v", taken, err)
	}

	b.ids <- "other"
	taken, err = r.Probe(context.Background(), cfg.Discovery.InstanceName("clash"), "", 50*time.Millisecond)
	if err != nil || taken {
		t.Fatalf("free name reported taken: taken=%v err=%v", taken, err)
	}
}

func TestSendInterruptedExitsCleanly(t *testing.T) {
	cfg := testConfig()
	src, _ := writeSource(t, "big.bin", 1000)

	registrar := newFakeRegistrar()
	sender := NewSenderApp(cfg, discovery.NewAdvertiser(&cfg.Discovery, registrar), &fakeProber{}, processor.NewFileService(), quietUI())

	sendErr := make(chan error, 1)
	go func() { sendErr <- sender.Run(context.Background(), &SenderOptions{FilePath: src}) }()

	var reg *registration
	select {
	case reg = <-registrar.ch:
	case err := <-sendErr:
		t.Fatalf("sender exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender never advertised")
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-sendErr:
		if err != nil {
			t.Errorf("interrupted send returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sender ignored the interrupt")
	}
	if reg.retracted() != 1 {
		t.Errorf("advertisement retracted %d times", reg.retracted())
	}
}
