package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/feeder/internal/config"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List corpus profiles",
	Long: `Lists the built-in corpus profiles and those defined under [profiles.<name>]
in the config file.`,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tINDEX\tFORMATS\tWORDS\tBATCH\tLANG\tDENSE\tDESCRIPTION")
	for _, p := range config.SortedProfiles(configStore) {
		formats := make([]string, 0, len(p.Formats))
		for _, f := range p.Formats {
			formats = append(formats, string(f))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			p.Name,
			orDash(p.Index),
			orDash(strings.Join(formats, ",")),
			p.MaxWords,
			p.BatchSize,
			yesNo(p.LanguageTag),
			yesNo(p.Dense),
			p.Description,
		)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
