package client

import (
	"net/url"

	"github.com/spf13/cobra"
)

// NewTicketCommand returns the ticket command group.
func NewTicketCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "ticket", Short: "Ticket operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			title, _ := cmd.Flags().GetString("title")
			overview, _ := cmd.Flags().GetString("overview")
			out, err := postJSON(baseURL(), "/v1/tickets/create", map[string]string{
				"project": project, "title": title, "overview": overview,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	createCmd.Flags().String("project", "", "Project name or ID")
	createCmd.Flags().String("title", "", "Ticket title")
	createCmd.Flags().String("overview", "", "Ticket overview")
	_ = createCmd.MarkFlagRequired("title")
	cmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON(baseURL(), "/v1/tickets/get", url.Values{"id": {args[0]}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.AddCommand(getCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ticket and its tasks (dequeues them first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := postJSON(baseURL(), "/v1/tickets/delete", map[string]string{"id": args[0]})
			return err
		},
	}
	cmd.AddCommand(deleteCmd)

	return cmd
}

// NewTaskCommand returns the task command group.
func NewTaskCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Task operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task under a ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ticketID, _ := cmd.Flags().GetString("ticket")
			title, _ := cmd.Flags().GetString("title")
			out, err := postJSON(baseURL(), "/v1/tasks/create", map[string]string{
				"ticketId": ticketID, "title": title,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	createCmd.Flags().String("ticket", "", "Parent ticket ID")
	createCmd.Flags().String("title", "", "Task title")
	_ = createCmd.MarkFlagRequired("ticket")
	_ = createCmd.MarkFlagRequired("title")
	cmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON(baseURL(), "/v1/tasks/get", url.Values{"id": {args[0]}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.AddCommand(getCmd)

	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done (or not done with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			undo, _ := cmd.Flags().GetBool("undo")
			out, err := postJSON(baseURL(), "/v1/tasks/done", map[string]any{
				"taskId": args[0], "done": !undo,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	doneCmd.Flags().Bool("undo", false, "Clear the done flag instead of setting it")
	cmd.AddCommand(doneCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task (dequeues it first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := postJSON(baseURL(), "/v1/tasks/delete", map[string]string{"id": args[0]})
			return err
		},
	}
	cmd.AddCommand(deleteCmd)

	return cmd
}
