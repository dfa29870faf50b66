// Command rdzvctl hosts a rendezvous store and reads or writes rendezvous
// state from the command line.
//
//	rdzvctl serve --endpoint 0.0.0.0:29500 --metrics-addr :9090
//	rdzvctl get --run-id job-42 --endpoint node-1:29500
//	rdzvctl set --run-id job-42 --endpoint node-1:29500 --state epoch-1 --token "$TOKEN"
//
// Every flag can also be set as RDZV_<FLAG> with dashes as underscores.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "rdzvctl:", err)
		os.Exit(1)
	}
}
