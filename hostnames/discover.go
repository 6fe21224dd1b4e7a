package hostnames

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultDNSServer is the local stub resolver queried for PTR records.
const DefaultDNSServer = "127.0.0.53:53"

// AddressLister returns the addresses of the local network interfaces.
type AddressLister func() ([]net.Addr, error)

// Resolver maps an IP address to the names registered for it.
type Resolver interface {
	LookupAddr(ctx context.Context, ip net.IP) ([]string, error)
}

// Options configures hostname discovery.
type Options struct {
	// BindAddress restricts discovery to a single address. Empty, "0.0.0.0"
	// and "::" select every interface address.
	BindAddress string

	// IncludeLoopback keeps loopback addresses.
	IncludeLoopback bool

	// ResolveAddresses adds the PTR names of every discovered address.
	ResolveAddresses bool

	// DNSServer is queried when ResolveAddresses is set and Resolver is nil.
	DNSServer string

	// Overrides, mainly for tests.
	Addresses AddressLister
	Hostname  func() (string, error)
	Resolver  Resolver

	Log *slog.Logger
}

// Discover returns the sorted, de-duplicated set of hostnames and IPv4
// addresses this host can be reached at. Failures are logged and skipped;
// Discover never fails.
func Discover(ctx context.Context, opts Options) []string {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	set := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSuffix(strings.TrimSpace(name), ".")
		if name != "" {
			set[name] = struct{}{}
		}
	}

	getHostname := opts.Hostname
	if getHostname == nil {
		getHostname = os.Hostname
	}
	if hostname, err := getHostname(); err != nil {
		log.Warn("Failed to read OS hostname", "err", err)
	} else {
		add(hostname)
	}

	ips := discoverAddresses(opts, log)
	for _, ip := range ips {
		add(ip.String())
	}

	if opts.ResolveAddresses {
		resolver := opts.Resolver
		if resolver == nil {
			resolver = NewDNSResolver(opts.DNSServer)
		}
		for _, ip := range ips {
			names, err := resolver.LookupAddr(ctx, ip)
			if err != nil {
				log.Debug("Reverse lookup failed", slog.String("ip", ip.String()), "err", err)
				continue
			}
			for _, name := range names {
				add(name)
			}
		}
	}

	result := make([]string, 0, len(set))
	for name := range set {
		result = append(result, name)
	}
	sort.Strings(result)

	log.Debug("Discovered hostnames", slog.Any("hostnames", result))
	return result
}

// Source returns a function sampling Discover each time it is called.
func Source(ctx context.Context, opts Options) func() []string {
	return func() []string {
		return Discover(ctx, opts)
	}
}

func discoverAddresses(opts Options, log *slog.Logger) []net.IP {
	if bind := net.ParseIP(opts.BindAddress); bind != nil && !bind.IsUnspecified() {
		if bind.To4() == nil {
			return nil
		}
		return []net.IP{bind.To4()}
	}

	list := opts.Addresses
	if list == nil {
		list = net.InterfaceAddrs
	}
	addrs, err := list()
	if err != nil {
		log.Warn("Failed to list interface addresses", "err", err)
		return nil
	}

	var ips []net.IP
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}

		// IPv6 literals would end up as DNS names
		ip4 := ip.To4()
		if ip4 == nil || ip4.IsUnspecified() || ip4.IsLinkLocalUnicast() {
			continue
		}
		if ip4.IsLoopback() && !opts.IncludeLoopback {
			continue
		}
		ips = append(ips, ip4)
	}
	return ips
}

// DNSResolver answers reverse lookups with PTR queries against one server.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver querying server (host:port). Empty
// selects DefaultDNSServer.
func NewDNSResolver(server string) *DNSResolver {
	if server == "" {
		server = DefaultDNSServer
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Timeout: 2 * time.Second},
	}
}

// LookupAddr returns the PTR names of ip.
func (r *DNSResolver) LookupAddr(ctx context.Context, ip net.IP) ([]string, error) {
	arpa, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return nil, err
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, err
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("PTR query for %s: %s", ip, dns.RcodeToString[in.Rcode])
	}

	names := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if ptr, ok := answer.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	return names, nil
}
