package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// parseRefArg parses "ticket:<id>" or "task:<id>".
func parseRefArg(s string) (map[string]string, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok || id == "" || (typ != "ticket" && typ != "task") {
		return nil, fmt.Errorf("bad ref %q; use ticket:<id> or task:<id>", s)
	}
	return refBody(typ, id), nil
}

// NewFlowCommand returns the flow command group covering the membership
// lifecycle: enqueue, dequeue, move, reorder, claim, complete, fail.
func NewFlowCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "flow", Short: "Work item scheduling operations"}

	enqueueCmd := &cobra.Command{
		Use:   "enqueue <ticket:<id>|task:<id>>",
		Short: "Append a work item to a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArg(args[0])
			if err != nil {
				return err
			}
			queueID, _ := cmd.Flags().GetString("queue")
			priority, _ := cmd.Flags().GetInt("priority")
			estimateMs, _ := cmd.Flags().GetInt64("estimate-ms")
			out, err := postJSON(baseURL(), "/v1/flow/enqueue", map[string]any{
				"queueId":               queueID,
				"ref":                   ref,
				"priority":              priority,
				"estimatedProcessingMs": estimateMs,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	enqueueCmd.Flags().String("queue", "", "Queue ID")
	enqueueCmd.Flags().Int("priority", 0, "Claim tie-break priority")
	enqueueCmd.Flags().Int64("estimate-ms", 0, "Estimated processing time in ms")
	_ = enqueueCmd.MarkFlagRequired("queue")
	cmd.AddCommand(enqueueCmd)

	dequeueCmd := &cobra.Command{
		Use:   "dequeue <ticket:<id>|task:<id>>",
		Short: "Remove a work item from its queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArg(args[0])
			if err != nil {
				return err
			}
			children, _ := cmd.Flags().GetBool("include-children")
			out, err := postJSON(baseURL(), "/v1/flow/dequeue", map[string]any{
				"ref":             ref,
				"includeChildren": children,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	dequeueCmd.Flags().Bool("include-children", false, "Also dequeue a ticket's tasks")
	cmd.AddCommand(dequeueCmd)

	moveCmd := &cobra.Command{
		Use:   "move <ticket:<id>|task:<id>>",
		Short: "Move a work item to another queue, or to unqueued",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArg(args[0])
			if err != nil {
				return err
			}
			target, _ := cmd.Flags().GetString("target")
			out, err := postJSON(baseURL(), "/v1/flow/move", map[string]any{
				"ref":           ref,
				"targetQueueId": target,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	moveCmd.Flags().String("target", "", "Target queue ID (empty = unqueued)")
	cmd.AddCommand(moveCmd)

	reorderCmd := &cobra.Command{
		Use:   "reorder <ref> [<ref>...]",
		Short: "Persist a full ordering of a queue's queued items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, _ := cmd.Flags().GetString("queue")
			refs := make([]map[string]string, 0, len(args))
			for _, a := range args {
				ref, err := parseRefArg(a)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}
			out, err := postJSON(baseURL(), "/v1/flow/reorder", map[string]any{
				"queueId": queueID,
				"refs":    refs,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	reorderCmd.Flags().String("queue", "", "Queue ID")
	_ = reorderCmd.MarkFlagRequired("queue")
	cmd.AddCommand(reorderCmd)

	claimCmd := &cobra.Command{
		Use:   "claim [ticket:<id>|task:<id>]",
		Short: "Claim the next item, or a specific one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, _ := cmd.Flags().GetString("agent")
			if len(args) == 1 {
				ref, err := parseRefArg(args[0])
				if err != nil {
					return err
				}
				out, err := postJSON(baseURL(), "/v1/flow/claim", map[string]any{
					"ref":     ref,
					"agentId": agentID,
				})
				if err != nil {
					return err
				}
				printJSON(out)
				return nil
			}
			queueID, _ := cmd.Flags().GetString("queue")
			out, err := postJSON(baseURL(), "/v1/flow/claim-next", map[string]any{
				"queueId": queueID,
				"agentId": agentID,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	claimCmd.Flags().String("queue", "", "Queue ID (for claim-next)")
	claimCmd.Flags().String("agent", "", "Agent ID")
	_ = claimCmd.MarkFlagRequired("agent")
	cmd.AddCommand(claimCmd)

	completeCmd := &cobra.Command{
		Use:   "complete <ticket:<id>|task:<id>>",
		Short: "Mark an in-progress item done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArg(args[0])
			if err != nil {
				return err
			}
			result, _ := cmd.Flags().GetString("result")
			out, err := postJSON(baseURL(), "/v1/flow/complete", map[string]any{
				"ref":    ref,
				"result": result,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	completeCmd.Flags().String("result", "", "Result summary")
	cmd.AddCommand(completeCmd)

	failCmd := &cobra.Command{
		Use:   "fail <ticket:<id>|task:<id>>",
		Short: "Mark an in-progress item failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArg(args[0])
			if err != nil {
				return err
			}
			msg, _ := cmd.Flags().GetString("error")
			out, err := postJSON(baseURL(), "/v1/flow/fail", map[string]any{
				"ref":          ref,
				"errorMessage": msg,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	failCmd.Flags().String("error", "", "Error message")
	cmd.AddCommand(failCmd)

	statusCmd := &cobra.Command{
		Use:   "status <ticket:<id>|task:<id>>",
		Short: "Show an item's live membership and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, id, _ := strings.Cut(args[0], ":")
			out, err := getJSON(baseURL(), "/v1/flow/membership", url.Values{"itemType": {typ}, "itemId": {id}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	retryCmd := &cobra.Command{
		Use:   "retry-advice <ticket:<id>|task:<id>>",
		Short: "Ask whether a failed item should be retried",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, id, _ := strings.Cut(args[0], ":")
			out, err := getJSON(baseURL(), "/v1/flow/retry-advice", url.Values{"itemType": {typ}, "itemId": {id}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.AddCommand(retryCmd)

	unqueuedCmd := &cobra.Command{
		Use:   "unqueued",
		Short: "List a project's items with no queue membership",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			out, err := getJSON(baseURL(), "/v1/flow/unqueued", url.Values{"project": {project}})
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	unqueuedCmd.Flags().String("project", "", "Project name or ID")
	cmd.AddCommand(unqueuedCmd)

	return cmd
}
