// Ironhive agent entrypoint. The agent serves remote-management
// requests over NATS; install registers it on the host, rpc runs the
// request loop (interactively or under the Windows SCM), env shows the
// environment overrides in effect.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironhive/agent/internal/agent"
	"github.com/ironhive/agent/internal/config"
	"github.com/ironhive/agent/internal/installer"
	"github.com/ironhive/agent/internal/rpc"
	"github.com/ironhive/agent/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ironhive-agent",
		Short:        "Remote management agent speaking NATS",
		Version:      agent.Version,
		SilenceUsage: true,
	}
	root.AddCommand(installCmd(), uninstallCmd(), rpcCmd(), envCmd())
	return root
}

func installCmd() *cobra.Command {
	var (
		natsServers     []string
		overwriteConfig bool
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Write the initial configuration and register the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst := installer.Installer{
				NATSServers:     natsServers,
				OverwriteConfig: overwriteConfig,
			}
			return inst.Install()
		},
	}
	cmd.Flags().StringSliceVarP(&natsServers, "nats-servers", "n", nil,
		"addresses of the NATS servers the agent connects to")
	cmd.Flags().BoolVar(&overwriteConfig, "overwrite-config", false,
		"replace an existing default configuration file")
	return cmd
}

func uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the configuration and deregister the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return installer.Uninstall()
		},
	}
}

func rpcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rpc",
		Short: "Serve requests (run install first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service.IsWindowsService() {
				return service.Run(&service.AgentService{RunFunc: serve})
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				log.Printf("shutdown signal: %v", sig)
				cancel()
			}()

			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.AgentID == "" {
		return fmt.Errorf("no agent_id configured; run install first")
	}

	opts, err := cfg.NatsOptions()
	if err != nil {
		return err
	}

	ih, err := rpc.New(agent.New(cfg.AgentID), cfg.ServerURL(), opts...)
	if err != nil {
		return err
	}
	defer ih.Close()

	return ih.Run(ctx)
}

func envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the configuration overrides taken from the environment",
		Run: func(cmd *cobra.Command, args []string) {
			const prefix = "IRONHIVE_"
			for _, kv := range os.Environ() {
				if !strings.HasPrefix(kv, prefix) {
					continue
				}
				key, value, _ := strings.Cut(strings.TrimPrefix(kv, prefix), "=")
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", strings.ToLower(key), value)
			}
		},
	}
}
