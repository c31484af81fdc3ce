package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/skillguard/internal/config"
)

var (
	Version = "0.1.0"
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "skillguard",
		Short: "Fetch and verify skill bundles",
		Long:  "skillguard fetches skill bundles from the marketplace, submits them to a local security-analysis sidecar, and renders a combined report.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("output", "o", "./reports", "Output directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose (debug) logging")
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Environment variable support (SKILLGUARD_REGISTRY_URL, etc.)
	viper.SetEnvPrefix("SKILLGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults()

	// Subcommands
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func setupLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the skillguard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("skillguard", Version)
		},
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
