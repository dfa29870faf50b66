package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/bootstrap"
	"github.com/unkn0wn-root/casrdzv/codec"
	"github.com/unkn0wn-root/casrdzv/store"
	"github.com/unkn0wn-root/casrdzv/store/etcd"
	"github.com/unkn0wn-root/casrdzv/store/redis"
)

// stateView is what get and set print.
type stateView struct {
	OK    bool   `json:"ok"`
	State string `json:"state,omitempty"`
	Token string `json:"token,omitempty"`
}

func stateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("run-id", "", "rendezvous run id (required)")
	f.String("store", "tcp", "store kind: tcp, redis or etcd")
	f.StringToString("param", nil, "rendezvous option key=value for the tcp store (store_type, read_timeout, is_host)")
	f.String("redis-addr", "localhost:6379", "redis address")
	f.String("etcd-endpoints", "localhost:2379", "comma-separated etcd endpoints")
	f.String("prefix", "", "key prefix for redis and etcd")
	f.StringP("output", "o", "text", "output format: text or json")
}

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the current rendezvous state and its token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			state, tok, ok, err := b.GetState(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), state, tok, ok)
		},
	}
	stateFlags(cmd)
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Compare-and-set the rendezvous state",
		Long: `set writes --state only if the store still holds what --token snapshots.
Without --token it succeeds only when no state was written yet. Either way
it prints the state the store holds afterwards, with its token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			tok := casrdzv.NoToken
			if t := a.v.GetString("token"); t != "" {
				tok = casrdzv.NewToken(b.Name(), []byte(t))
			}
			desired := a.v.GetString("state")
			state, cur, ok, err := b.SetState(cmd.Context(), []byte(desired), tok)
			if err != nil {
				return err
			}
			if !ok || string(state) != desired {
				a.log.Info("state was not replaced")
			}
			return a.print(cmd.OutOrStdout(), state, cur, ok)
		},
	}
	stateFlags(cmd)
	cmd.Flags().String("state", "", "state to write")
	cmd.Flags().String("token", "", "token from a previous get or set")
	return cmd
}

func (a *app) print(w io.Writer, state []byte, tok casrdzv.Token, ok bool) error {
	view := stateView{OK: ok}
	if ok {
		view.State, view.Token = string(state), string(tok.Bytes())
	}
	switch a.v.GetString("output") {
	case "json":
		b, err := codec.JSON[stateView]{}.Encode(view)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "text":
		if !ok {
			_, err := fmt.Fprintln(w, "no state")
			return err
		}
		_, err := fmt.Fprintf(w, "state: %s\ntoken: %s\n", view.State, view.Token)
		return err
	default:
		return fmt.Errorf("unknown output format %q", a.v.GetString("output"))
	}
}

func (a *app) openBackend(ctx context.Context) (*casrdzv.Backend, error) {
	runID := a.v.GetString("run-id")
	opts := casrdzv.Options{Logger: a.logger(), CloseStore: true}

	switch kind := a.v.GetString("store"); kind {
	case "tcp":
		params := a.v.GetStringMapString("param")
		if params == nil {
			params = map[string]string{}
		}
		if _, ok := params["read_timeout"]; !ok {
			params["read_timeout"] = strconv.Itoa(a.v.GetInt("read-timeout"))
		}
		// a CLI peer joins an existing store unless told to host it
		if _, ok := params["is_host"]; !ok {
			params["is_host"] = "false"
		}
		cfg, err := bootstrap.ConfigFromParams(runID, a.v.GetString("endpoint"), params)
		if err != nil {
			return nil, err
		}
		b, _, err := bootstrap.CreateBackend(ctx, cfg, bootstrap.Options{Logger: opts.Logger, Backend: opts})
		return b, err

	case "redis":
		st, err := redis.New(redis.Config{
			Client:      goredis.NewClient(&goredis.Options{Addr: a.v.GetString("redis-addr")}),
			CloseClient: true,
			Prefix:      a.v.GetString("prefix"),
			ReadTimeout: a.readTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return newOwned(ctx, st, runID, opts)

	case "etcd":
		st, err := etcd.Dial(strings.Split(a.v.GetString("etcd-endpoints"), ","), a.v.GetString("prefix"), a.readTimeout())
		if err != nil {
			return nil, &casrdzv.ConnectionError{Op: "open", Err: err}
		}
		return newOwned(ctx, st, runID, opts)

	default:
		return nil, &casrdzv.ConfigError{Field: "store", Msg: "unknown store kind " + strconv.Quote(kind)}
	}
}

// newOwned builds a backend over st and closes st when that fails.
func newOwned(ctx context.Context, st store.Store, runID string, opts casrdzv.Options) (*casrdzv.Backend, error) {
	b, err := casrdzv.New(ctx, st, runID, opts)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return b, nil
}
