// Package bootstrap stands up the shared store for a rendezvous: it decides
// whether this process hosts the store or connects to it, and builds the
// casrdzv backend on top.
//
// Role resolution moves through Unresolved -> RoleChosen -> Connected, with
// one detour: when the server role was inferred (not forced) and hosting
// fails, the process retries exactly once as a client. Several peers on one
// machine can all infer they are the host; only one can bind the port.
package bootstrap

import (
	"context"
	"net"
	"os"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/store"
	"github.com/unkn0wn-root/casrdzv/store/tcp"
)

// Opener creates the store client in the role described by cfg.
type Opener func(ctx context.Context, cfg tcp.Config) (store.Store, error)

// Options tune Open and CreateBackend. The zero value is ready to use.
type Options struct {
	Logger casrdzv.Logger // if nil, NopLogger is used
	Hooks  casrdzv.Hooks  // if nil, NopHooks is used

	Role     RoleFunc                                                 // nil => InferRole
	Identity func(ctx context.Context) (Identity, error)              // nil => LocalIdentity
	Resolve  func(ctx context.Context, host string) ([]net.IP, error) // nil => ResolveHost
	Open     Opener                                                   // nil => tcp.Open

	// Backend configures the backend built by CreateBackend. Logger and Hooks
	// default to the ones above.
	Backend casrdzv.Options
}

// Result describes the connected store.
type Result struct {
	Store    store.Store
	Endpoint Endpoint
	Role     Role
	// Inferred is true when the role came from the heuristic, not is_host.
	Inferred bool
	// FellBack is true when hosting failed and the process became a client.
	FellBack bool
}

func openTCP(ctx context.Context, cfg tcp.Config) (store.Store, error) {
	st, err := tcp.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Open validates cfg, resolves the hosting role and connects to the store.
// Configuration problems return a *casrdzv.ConfigError; failing to connect
// returns a *casrdzv.ConnectionError.
func Open(ctx context.Context, cfg Config, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	ep, _ := ParseEndpoint(cfg.Endpoint, DefaultPort)

	log := casrdzv.OrNopLogger(opts.Logger)
	hooks := casrdzv.OrNopHooks(opts.Hooks)
	roleFn := opts.Role
	if roleFn == nil {
		roleFn = InferRole
	}
	open := opts.Open
	if open == nil {
		open = openTCP
	}

	var id Identity
	inferred := cfg.IsHost == nil
	if inferred {
		lookup := opts.Identity
		if lookup == nil {
			lookup = LocalIdentity
		}
		var err error
		id, err = lookup(ctx)
		if err != nil {
			// match against whatever was resolved
			log.Warn("local identity lookup incomplete", casrdzv.Fields{"hostname": id.Hostname, "err": err})
		}

		resolve := opts.Resolve
		if resolve == nil {
			resolve = ResolveHost
		}
		ep.Addrs, err = resolve(ctx, ep.Host)
		if err != nil {
			// an unresolvable endpoint host can still match by name
			log.Debug("endpoint host did not resolve", casrdzv.Fields{"host": ep.Host, "err": err})
		}
	}
	role := roleFn(cfg.IsHost, id, ep)

	tcfg := tcp.Config{
		Addr:        ep.String(),
		Server:      role == RoleServer,
		ReadTimeout: cfg.Timeout(),
		Logger:      log,
	}
	res := &Result{Endpoint: ep, Role: role, Inferred: inferred}

	st, err := open(ctx, tcfg)
	if err != nil && role == RoleServer && inferred {
		hooks.HostFallback(tcfg.Addr, err)
		log.Warn("could not host the store, connecting as client", casrdzv.Fields{"endpoint": tcfg.Addr, "err": err})
		tcfg.Server = false
		res.Role, res.FellBack = RoleClient, true
		st, err = open(ctx, tcfg)
	}
	if err != nil {
		hooks.StoreError("open", "", err)
		return nil, &casrdzv.ConnectionError{Op: "open", Err: err}
	}

	if res.Role == RoleServer {
		log.Info("process hosts the TCP store", casrdzv.Fields{"pid": os.Getpid(), "endpoint": tcfg.Addr, "run_id": cfg.RunID})
	} else {
		log.Debug("connected to the TCP store", casrdzv.Fields{"endpoint": tcfg.Addr, "fell_back": res.FellBack})
	}
	res.Store = st
	return res, nil
}

// CreateBackend opens the store and builds a backend that owns it.
func CreateBackend(ctx context.Context, cfg Config, opts Options) (*casrdzv.Backend, *Result, error) {
	res, err := Open(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	bopts := opts.Backend
	if bopts.Logger == nil {
		bopts.Logger = opts.Logger
	}
	if bopts.Hooks == nil {
		bopts.Hooks = opts.Hooks
	}
	bopts.CloseStore = true

	b, err := casrdzv.New(ctx, res.Store, cfg.RunID, bopts)
	if err != nil {
		_ = res.Store.Close()
		return nil, nil, err
	}
	return b, res, nil
}
