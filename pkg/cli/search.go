package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/skillguard/internal/config"
	"github.com/yorozuya-cybersecurity/skillguard/internal/registry"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the skill marketplace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			cfg := config.Load()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			skills, err := registry.NewClient(cfg.RegistryURL).Search(ctx, query)
			if err != nil {
				return err
			}
			if len(skills) == 0 {
				fmt.Printf("No skills matching %q\n", query)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
			for _, s := range skills {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Version, s.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("registry-url", registry.DefaultURL, "Skill registry base URL")
	_ = viper.BindPFlag("registry_url", cmd.Flags().Lookup("registry-url"))

	return cmd
}
