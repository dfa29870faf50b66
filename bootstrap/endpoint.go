package bootstrap

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/casrdzv"
)

var hostRE = regexp.MustCompile(`^[\w.:-]+$`)

// Endpoint is the address of the shared store.
type Endpoint struct {
	Host string
	Port int
	// Addrs are the resolved addresses of Host. ParseEndpoint leaves it nil;
	// Open fills it when it has to infer the role.
	Addrs []net.IP
}

func (e Endpoint) String() string { return net.JoinHostPort(e.Host, strconv.Itoa(e.Port)) }

// ParseEndpoint splits host[:port]. An empty endpoint is localhost; a
// missing port is defaultPort; IPv6 hosts go in brackets ("[::1]:29500").
func ParseEndpoint(s string, defaultPort int) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{Host: "localhost", Port: defaultPort}, nil
	}

	host, port := s, ""
	if !(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) {
		if i := strings.LastIndexByte(s, ':'); i >= 0 {
			host, port = s[:i], s[i+1:]
		}
	}
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}

	ep := Endpoint{Host: host, Port: defaultPort}
	if port != "" || strings.HasSuffix(s, ":") {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 || strings.ContainsAny(port, "+-") {
			return Endpoint{}, &casrdzv.ConfigError{Field: "endpoint", Msg: "the port number of " + strconv.Quote(s) + " must be an integer between 0 and 65535"}
		}
		ep.Port = n
	}
	if !hostRE.MatchString(ep.Host) {
		return Endpoint{}, &casrdzv.ConfigError{Field: "endpoint", Msg: "the hostname of " + strconv.Quote(s) + " must be a dot-separated list of labels, an IPv4 address, or an IPv6 address"}
	}
	return ep, nil
}
