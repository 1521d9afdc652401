package client

import (
	"net/url"

	"github.com/spf13/cobra"
)

// NewProjectCommand returns the project command group.
func NewProjectCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Project operations"}

	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create a project if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			out, err := postJSON(baseURL(), "/v1/projects/ensure", map[string]string{"name": name})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	ensureCmd.Flags().String("name", "default", "Project name")
	cmd.AddCommand(ensureCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON(baseURL(), "/v1/projects", nil)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregated queue stats for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			out, err := getJSON(baseURL(), "/v1/flow/project-stats", url.Values{"project": {project}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	statsCmd.Flags().String("project", "", "Project name or ID")
	cmd.AddCommand(statsCmd)

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Recent audit events for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			limit, _ := cmd.Flags().GetString("limit")
			out, err := getJSON(baseURL(), "/v1/flow/events", url.Values{"project": {project}, "limit": {limit}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	eventsCmd.Flags().String("project", "", "Project name or ID")
	eventsCmd.Flags().String("limit", "100", "Max events")
	cmd.AddCommand(eventsCmd)

	trimCmd := &cobra.Command{
		Use:   "events-trim",
		Short: "Delete a project's oldest audit events beyond --keep",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			keep, _ := cmd.Flags().GetInt("keep")
			out, err := postJSON(baseURL(), "/v1/flow/events/trim", map[string]any{
				"project": project, "keepLast": keep,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	trimCmd.Flags().String("project", "", "Project name or ID")
	trimCmd.Flags().Int("keep", 1000, "Events to keep")
	cmd.AddCommand(trimCmd)

	return cmd
}
