package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	apiURL  string
	actor   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var client *apiClient

	root := &cobra.Command{
		Use:           "casectl",
		Short:         "Operate on alert cases through the cases API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.actor == "" {
				return errors.New("--actor (or CASES_ACTOR) is required")
			}
			client = newAPIClient(opts.apiURL, opts.actor, opts.timeout)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("CASES_API", "http://localhost:8090"), "base URL of the cases API")
	root.PersistentFlags().StringVar(&opts.actor, "actor", os.Getenv("CASES_ACTOR"), "user the requests are made as")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")

	cl := func() *apiClient { return client }
	root.AddCommand(
		newGetCmd(cl),
		newListCmd(cl),
		newCountsCmd(cl),
		newAuditCmd(cl),
		newStatusCmd(cl),
		newHandoffCmd(cl),
		newReassignCmd(cl),
	)
	return root
}

func newGetCmd(cl func() *apiClient) *cobra.Command {
	var byNumber bool
	cmd := &cobra.Command{
		Use:   "get <case-id|case-number>",
		Short: "Show one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/cases/" + url.PathEscape(args[0])
			if byNumber {
				path = "/cases/by-number/" + url.PathEscape(args[0])
			}
			data, err := cl().do(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().BoolVar(&byNumber, "number", false, "treat the argument as a case number")
	return cmd
}

func newListCmd(cl func() *apiClient) *cobra.Command {
	var status, createdBy, alertID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases, optionally filtered by one of status, creator or alert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "status", status)
			setIf(q, "createdBy", createdBy)
			setIf(q, "alertId", alertID)
			data, err := cl().do(cmd.Context(), http.MethodGet, "/cases", q, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "case status")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "creator user id")
	cmd.Flags().StringVar(&alertID, "alert", "", "originating alert id")
	cmd.MarkFlagsMutuallyExclusive("status", "created-by", "alert")
	return cmd
}

func newCountsCmd(cl func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Count cases per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cl().do(cmd.Context(), http.MethodGet, "/cases/counts", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
}

func newAuditCmd(cl func() *apiClient) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "audit [case-id]",
		Short: "Dump the audit trail of a case, or of an actor with --by",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			switch {
			case len(args) == 1 && actor == "":
				path = "/cases/" + url.PathEscape(args[0]) + "/audit"
			case len(args) == 0 && actor != "":
				path = "/actors/" + url.PathEscape(actor) + "/audit"
			default:
				return errors.New("give either a case id or --by, not both")
			}
			data, err := cl().do(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().StringVar(&actor, "by", "", "list everything this actor did instead")
	return cmd
}

func newStatusCmd(cl func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <case-id> <status>",
		Short: "Overwrite a case status without running any lifecycle step",
		Long: `set-status is for administrative repair. It records a STATUS_CHANGE
audit entry but opens or closes no tasks and starts no workflow.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"status": args[1]}
			data, err := cl().do(cmd.Context(), http.MethodPut, "/cases/"+url.PathEscape(args[0])+"/status", nil, body)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
}

func newHandoffCmd(cl func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "handoff <case-id>",
		Short: "Retry the investigation hand-off of a ready case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cl().do(cmd.Context(), http.MethodPost, "/cases/"+url.PathEscape(args[0])+"/handoff", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
}

func newReassignCmd(cl func() *apiClient) *cobra.Command {
	var to string
	var unassign bool
	cmd := &cobra.Command{
		Use:   "reassign <task-id>",
		Short: "Assign a task to a user, or return it to its group queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (to == "") == !unassign {
				return errors.New("give exactly one of --to or --unassign")
			}
			body := map[string]*string{"assignee": nil}
			if to != "" {
				body["assignee"] = &to
			}
			data, err := cl().do(cmd.Context(), http.MethodPost, "/tasks/"+url.PathEscape(args[0])+"/assign", nil, body)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "user to assign the task to")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "return the task to its candidate group")
	return cmd
}

func printJSON(cmd *cobra.Command, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func setIf(q url.Values, k, v string) {
	if v != "" {
		q.Set(k, v)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
