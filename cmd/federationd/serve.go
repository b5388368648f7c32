package main

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spiffe/go-spiffe/v2/bundle/spiffebundle"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/workloadapi"

	"github.com/sufield/federationd/federation"
	"github.com/sufield/federationd/internal/config"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var pidFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a configuration file and serve its bundles and endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, pidFile)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "federationd.yaml", "Path to the YAML configuration file")
	cmd.Flags().StringVar(&pidFile, "pid-file", defaultPIDFile, "Path to write this process's PID, for the stop subcommand")
	return cmd
}

func runServe(ctx context.Context, configPath, pidFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errConfig, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	s := federation.NewServer(federation.WithLogger(logger))

	if err := registerBundles(s, cfg); err != nil {
		return fmt.Errorf("%w: %v", errConfig, err)
	}
	if err := serveEndpoints(ctx, s, cfg); err != nil {
		return err
	}

	if err := writePIDFile(pidFile); err != nil {
		logger.Warn("failed writing pid file, stop subcommand will not find this process", "path", pidFile, "error", err)
	} else {
		defer os.Remove(pidFile)
	}

	logger.Info("federationd serving, waiting for shutdown signal")
	<-ctx.Done()

	logger.Info("shutting down")
	return s.Stop()
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func registerBundles(s *federation.Server, cfg config.Config) error {
	for _, b := range cfg.Bundles {
		td, err := spiffeid.TrustDomainFromString(b.TrustDomain)
		if err != nil {
			return fmt.Errorf("bundle %s: %w", b.Path, err)
		}

		raw, err := os.ReadFile(b.BundlePath)
		if err != nil {
			return fmt.Errorf("bundle %s: reading %s: %w", b.Path, b.BundlePath, err)
		}
		bundle, err := spiffebundle.Parse(td, raw)
		if err != nil {
			return fmt.Errorf("bundle %s: parsing %s: %w", b.Path, b.BundlePath, err)
		}

		src := &federation.StaticBundleSource{TrustDomain: td, Bundle: bundle}
		if err := s.RegisterBundle(b.Path, src, td); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Path, err)
		}
	}
	return nil
}

func serveEndpoints(ctx context.Context, s *federation.Server, cfg config.Config) error {
	for _, ep := range cfg.Endpoints {
		switch ep.Auth {
		case "web":
			if err := addWebEndpoint(s, ep); err != nil {
				return fmt.Errorf("%w: %v", errConfig, err)
			}
		case "spiffe":
			if err := addSPIFFEEndpoint(ctx, s, ep); err != nil {
				return fmt.Errorf("%w: %v", errConfig, err)
			}
		}

		for _, port := range ep.Ports {
			if err := s.ServeEndpoint(ep.BaseURL, port); err != nil {
				return fmt.Errorf("serving %s on port %d: %w", ep.BaseURL, port, err)
			}
		}
	}
	return nil
}

func addWebEndpoint(s *federation.Server, ep config.EndpointConfig) error {
	pair, err := tls.LoadX509KeyPair(ep.CertFile, ep.KeyFile)
	if err != nil {
		return fmt.Errorf("loading keypair for %s: %w", ep.BaseURL, err)
	}

	certs := make([]*x509.Certificate, len(pair.Certificate))
	for i, der := range pair.Certificate {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("parsing certificate chain for %s: %w", ep.BaseURL, err)
		}
		certs[i] = cert
	}

	key, ok := pair.PrivateKey.(crypto.Signer)
	if !ok {
		return fmt.Errorf("private key for %s does not implement crypto.Signer", ep.BaseURL)
	}

	_, err = s.AddHttpsWebEndpoint(ep.BaseURL, certs, key)
	return err
}

func addSPIFFEEndpoint(ctx context.Context, s *federation.Server, ep config.EndpointConfig) error {
	source, err := workloadapi.NewX509Source(ctx)
	if err != nil {
		return fmt.Errorf("creating workload API X509Source for %s: %w", ep.BaseURL, err)
	}
	_, err = s.AddHttpsSpiffeEndpoint(ep.BaseURL, source)
	return err
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
