package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	sessionProject string
	sessionDomain  string
	sessionLimit   int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect work sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionDomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List suggested domains",
	Args:  cobra.NoArgs,
	RunE:  runSessionDomains,
}

func init() {
	sessionListCmd.Flags().StringVarP(&sessionProject, "project", "p", "", "only list this project")
	sessionListCmd.Flags().StringVarP(&sessionDomain, "domain", "d", "", "only list this domain")
	sessionListCmd.Flags().IntVarP(&sessionLimit, "limit", "n", 10, "maximum number of sessions")

	sessionCmd.AddCommand(sessionListCmd, sessionDomainsCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errSessionUnavailable
	}
	ctx := commandContext(cmd)

	sessions, err := sessionService.List(ctx, driving.SessionFilter{
		Project: sessionProject,
		Domain:  sessionDomain,
		Limit:   sessionLimit,
	})
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(cmd, sessions)
	}
	if len(sessions) == 0 {
		cmd.Println("No sessions recorded.")
		return nil
	}

	current, err := sessionService.Current(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		cmd.Printf("%s %s  %s  %d chunks  started %s\n",
			marker, s.ID, s.Project, len(s.Chunks), formatDate(s.Started))
	}
	return nil
}

func runSessionDomains(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errSessionUnavailable
	}

	domains, err := sessionService.Domains(commandContext(cmd))
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(cmd, domains)
	}

	categories := make([]string, 0, len(domains))
	for c := range domains {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		cmd.Printf("%s: %s\n", c, strings.Join(domains[c], ", "))
	}
	return nil
}
