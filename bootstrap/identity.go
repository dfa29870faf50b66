package bootstrap

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// Identity is what this machine answers to on the network.
type Identity struct {
	Hostname       string
	CanonicalNames []string
	Addrs          []net.IP
}

// LocalIdentity looks up this machine's hostname, canonical name and
// addresses. Lookup failures return the partial identity gathered so far
// together with the error.
func LocalIdentity(ctx context.Context) (Identity, error) {
	var id Identity
	host, err := os.Hostname()
	if err != nil {
		return id, err
	}
	id.Hostname = host

	var errs []error
	if cname, err := net.DefaultResolver.LookupCNAME(ctx, host); err == nil {
		id.CanonicalNames = append(id.CanonicalNames, strings.TrimSuffix(cname, "."))
	} else {
		errs = append(errs, err)
	}
	if addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host); err == nil {
		for _, a := range addrs {
			id.Addrs = append(id.Addrs, a.IP)
		}
	} else {
		errs = append(errs, err)
	}
	return id, errors.Join(errs...)
}

// MatchesEndpoint reports whether ep names this machine, either by its host
// (see Matches) or because one of ep's resolved addresses belongs to it. The
// latter catches DNS and hosts-file aliases.
func (id Identity) MatchesEndpoint(ep Endpoint) bool {
	if id.Matches(ep.Host) {
		return true
	}
	for _, ea := range ep.Addrs {
		for _, a := range id.Addrs {
			if a.Equal(ea) {
				return true
			}
		}
	}
	return false
}

// ResolveHost returns the addresses host resolves to. IP literals resolve to
// themselves.
func ResolveHost(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.IP)
	}
	return out, nil
}

// Matches reports whether host names this machine: "localhost", a loopback
// address, the hostname, a canonical name, or one of the resolved addresses.
func (id Identity) Matches(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip != nil && ip.IsLoopback() {
		return true
	}
	if id.Hostname != "" && host == id.Hostname {
		return true
	}
	for _, cn := range id.CanonicalNames {
		if cn != "" && host == cn {
			return true
		}
	}
	if ip != nil {
		for _, a := range id.Addrs {
			if a.Equal(ip) {
				return true
			}
		}
	}
	return false
}
