package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Signal a running serve process to shut down gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(pidFile)
		},
	}
	cmd.Flags().StringVar(&pidFile, "pid-file", defaultPIDFile, "Path to the PID file written by serve")
	return cmd
}

func runStop(pidFile string) error {
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("reading pid file %s: %w", pidFile, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("parsing pid file %s: %w", pidFile, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling process %d: %w", pid, err)
	}
	return nil
}
