package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sufield/federationd/internal/config"
)

func newRegisterCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Validate a configuration file without starting any listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "federationd.yaml", "Path to the YAML configuration file")
	return cmd
}

func runRegister(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errConfig, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "configuration %s is valid\n", configPath)
	fmt.Fprintf(out, "  bundles:   %d\n", len(cfg.Bundles))
	for _, b := range cfg.Bundles {
		fmt.Fprintf(out, "    %s -> trust domain %s (%s)\n", b.Path, b.TrustDomain, b.Source)
	}
	fmt.Fprintf(out, "  endpoints: %d\n", len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		fmt.Fprintf(out, "    %s (%s auth) on ports %v\n", e.BaseURL, e.Auth, e.Ports)
	}
	return nil
}
