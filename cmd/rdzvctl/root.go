package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/bootstrap"
	zaplog "github.com/unkn0wn-root/casrdzv/log/zap"
)

// app carries what every subcommand resolves from flags and environment.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "rdzvctl",
		Short:         "Host and inspect compare-and-set rendezvous state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			l, err := newZap(a.v.GetBool("verbose"))
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	a.v.SetEnvPrefix("RDZV")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	pf := root.PersistentFlags()
	pf.BoolP("verbose", "v", false, "log at debug level")
	pf.String("endpoint", "", "store endpoint host:port (default localhost:29500)")
	pf.Int("read-timeout", bootstrap.DefaultReadTimeout, "read timeout in seconds for blocking store calls")

	root.AddCommand(a.serveCmd(), a.getCmd(), a.setCmd())
	return root
}

func newZap(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func (a *app) logger() casrdzv.Logger {
	if a.log == nil {
		return casrdzv.NopLogger{}
	}
	return zaplog.New(a.log)
}

func (a *app) readTimeout() time.Duration {
	return time.Duration(a.v.GetInt("read-timeout")) * time.Second
}
