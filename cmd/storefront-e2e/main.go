// storefront-e2e drives the retail demo storefront through a real browser.
//
//	storefront-e2e run --fixture          # scenarios against an in-process storefront
//	storefront-e2e run --actor visual     # only the visual account's scenarios
//	storefront-e2e serve --addr :8080     # the storefront fixture on its own
//	storefront-e2e list                   # the scenario catalog
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kuitang/storefront-e2e/internal/obs"
)

func main() {
	obs.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
