// Command federationd runs a SPIFFE bundle federation endpoint server:
// it registers trust bundle paths and serves them over authenticated HTTPS
// per a declarative YAML configuration file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sufield/federationd/internal/buildinfo"
)

// Exit codes. Cobra returns usage errors from ExecuteContext like any other
// error, so they exit with exitServe.
const (
	exitOK     = 0
	exitConfig = 3
	exitServe  = 4
)

var errConfig = errors.New("federationd: configuration error")

// defaultPIDFile is where serve records its process ID and stop looks for
// it by default; both commands accept --pid-file to override.
const defaultPIDFile = "federationd.pid"

var rootCmd = &cobra.Command{
	Use:     "federationd",
	Short:   "SPIFFE bundle federation endpoint server",
	Version: buildinfo.Get().Version,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newStopCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(exitOK)
		}

		code := exitServe
		if errors.Is(err, errConfig) {
			code = exitConfig
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}
