package client

import (
	"net/url"

	"github.com/spf13/cobra"
)

// NewQueueCommand returns the queue command group.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Queue operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			name, _ := cmd.Flags().GetString("name")
			desc, _ := cmd.Flags().GetString("description")
			maxConc, _ := cmd.Flags().GetInt("max-concurrency")
			out, err := postJSON(baseURL(), "/v1/queues/create", map[string]any{
				"project":        project,
				"name":           name,
				"description":    desc,
				"maxConcurrency": maxConc,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	createCmd.Flags().String("project", "", "Project name or ID")
	createCmd.Flags().String("name", "", "Queue name")
	createCmd.Flags().String("description", "", "Queue description")
	createCmd.Flags().Int("max-concurrency", 0, "Max concurrent claims (0 = server default)")
	_ = createCmd.MarkFlagRequired("name")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queues in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			out, err := getJSON(baseURL(), "/v1/queues", url.Values{"project": {project}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	listCmd.Flags().String("project", "", "Project name or ID")
	cmd.AddCommand(listCmd)

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Deactivate a queue (members stay; claims are refused)",
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, _ := cmd.Flags().GetString("queue")
			out, err := postJSON(baseURL(), "/v1/queues/update", map[string]any{
				"queueId": queueID, "isActive": false,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	pauseCmd.Flags().String("queue", "", "Queue ID")
	_ = pauseCmd.MarkFlagRequired("queue")
	cmd.AddCommand(pauseCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Reactivate a queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, _ := cmd.Flags().GetString("queue")
			out, err := postJSON(baseURL(), "/v1/queues/update", map[string]any{
				"queueId": queueID, "isActive": true,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	resumeCmd.Flags().String("queue", "", "Queue ID")
	_ = resumeCmd.MarkFlagRequired("queue")
	cmd.AddCommand(resumeCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an empty queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, _ := cmd.Flags().GetString("queue")
			_, err := postJSON(baseURL(), "/v1/queues/delete", map[string]string{"queueId": queueID})
			return err
		},
	}
	deleteCmd.Flags().String("queue", "", "Queue ID")
	_ = deleteCmd.MarkFlagRequired("queue")
	cmd.AddCommand(deleteCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Queue stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, _ := cmd.Flags().GetString("queue")
			out, err := getJSON(baseURL(), "/v1/flow/stats", url.Values{"queueId": {queueID}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	statsCmd.Flags().String("queue", "", "Queue ID")
	_ = statsCmd.MarkFlagRequired("queue")
	cmd.AddCommand(statsCmd)

	membersCmd := &cobra.Command{
		Use:   "members",
		Short: "List queue members in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, _ := cmd.Flags().GetString("queue")
			filter, _ := cmd.Flags().GetString("filter")
			out, err := getJSON(baseURL(), "/v1/flow/members", url.Values{"queueId": {queueID}, "filter": {filter}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	membersCmd.Flags().String("queue", "", "Queue ID")
	membersCmd.Flags().String("filter", "", `CEL filter, e.g. 'status == "failed" && priority > 3'`)
	_ = membersCmd.MarkFlagRequired("queue")
	cmd.AddCommand(membersCmd)

	return cmd
}
