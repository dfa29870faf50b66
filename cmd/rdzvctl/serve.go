package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/casrdzv/bootstrap"
	"github.com/unkn0wn-root/casrdzv/hooks/prom"
	"github.com/unkn0wn-root/casrdzv/store/memory"
	"github.com/unkn0wn-root/casrdzv/store/tcp"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the TCP store until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (off when empty)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ep, err := bootstrap.ParseEndpoint(a.v.GetString("endpoint"), bootstrap.DefaultPort)
	if err != nil {
		return err
	}
	if a.v.GetInt("read-timeout") <= 0 {
		return errors.New("read-timeout must be positive")
	}

	m := prom.New("rdzv")
	srv, err := tcp.ListenStore(ep.String(), m.Store(memory.New(a.readTimeout())), a.logger())
	if err != nil {
		return err
	}
	defer srv.Close()
	a.log.Info("serving rendezvous store", zap.Stringer("addr", srv.Addr()))

	if addr := a.v.GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = hs.Shutdown(sctx)
		}()
		a.log.Info("serving metrics", zap.String("addr", addr))
	}

	<-ctx.Done()
	a.log.Info("shutting down")
	return nil
}
