package bootstrap

// Role is the part a process plays for the shared store.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// RoleFunc decides the role from the explicit override (nil when unset),
// this machine's identity and the store endpoint. It must be pure; tests
// inject their own.
type RoleFunc func(override *bool, local Identity, ep Endpoint) Role

// InferRole honors the override and otherwise hosts iff the endpoint names
// this machine by host or by resolved address. Several processes on one machine may all infer
// RoleServer; bootstrap settles that by letting the losers fall back.
func InferRole(override *bool, local Identity, ep Endpoint) Role {
	if override != nil {
		if *override {
			return RoleServer
		}
		return RoleClient
	}
	if local.MatchesEndpoint(ep) {
		return RoleServer
	}
	return RoleClient
}
