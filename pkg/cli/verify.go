package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/skillguard/internal/config"
	"github.com/yorozuya-cybersecurity/skillguard/internal/registry"
	"github.com/yorozuya-cybersecurity/skillguard/internal/report"
	"github.com/yorozuya-cybersecurity/skillguard/internal/scanners"
	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
	"github.com/yorozuya-cybersecurity/skillguard/internal/sidecar"
	"github.com/yorozuya-cybersecurity/skillguard/pkg/utils"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <skill>",
		Short: "Fetch a skill bundle, scan it, and print a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg := config.Load()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fmt.Printf("📦 Fetching %s from %s\n", name, cfg.RegistryURL)
			files, err := registry.NewClient(cfg.RegistryURL).Fetch(ctx, name)
			if err != nil {
				return err
			}

			res := schema.VerifyResult{
				Skill:     name,
				Timestamp: time.Now(),
			}
			for _, f := range files {
				res.Files = append(res.Files, f.Path)
			}

			if !cfg.SkipScan {
				supervisor := sidecar.New(sidecar.Config{
					ExternalURL: cfg.ScannerURL,
					Port:        cfg.ScannerPort,
					Launcher:    cfg.Launcher,
				}, slog.Default())
				defer supervisor.Shutdown()

				scanner := scanners.New(supervisor, scanners.Options{
					LLMAPIKey:   cfg.LLMAPIKey,
					LLMModel:    cfg.LLMModel,
					LLMProvider: cfg.LLMProvider,
				}, slog.Default())
				res.Scan = scanner.Scan(ctx, files)
			}

			markdown := report.GenerateMarkdown(res)
			fmt.Println(markdown)

			dir, err := utils.SaveResult(res, markdown, cfg.Output)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Results saved to %s\n", dir)
			return nil
		},
	}

	cmd.Flags().String("registry-url", registry.DefaultURL, "Skill registry base URL")
	cmd.Flags().String("scanner-url", "", "External scanner endpoint (disables the managed sidecar)")
	cmd.Flags().Int("scanner-port", sidecar.DefaultPort, "Port for the managed scanner sidecar")
	cmd.Flags().String("launcher", "", "Explicit scanner launcher executable")
	cmd.Flags().Bool("skip-scan", false, "Fetch and report without security analysis")
	_ = viper.BindPFlag("registry_url", cmd.Flags().Lookup("registry-url"))
	_ = viper.BindPFlag("scanner_url", cmd.Flags().Lookup("scanner-url"))
	_ = viper.BindPFlag("scanner_port", cmd.Flags().Lookup("scanner-port"))
	_ = viper.BindPFlag("launcher", cmd.Flags().Lookup("launcher"))
	_ = viper.BindPFlag("skip_scan", cmd.Flags().Lookup("skip-scan"))

	return cmd
}
