package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"triage/internal/api"
	"triage/internal/records"
	"triage/internal/session"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the configured roots and build the review queue",
		Long: "Scan walks every configured root, records new files as pending, and writes a freshly\n" +
			"shuffled review queue. With --resume the unfinished part of the previous queue keeps its\n" +
			"order and newly found files are appended after it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				build := sess.InitializeScan
				if resume {
					build = sess.Resume
				}
				summary, err := build(cmd.Context())
				if err != nil {
					return err
				}
				resp := api.ScanResponse{
					Count:           summary.Count,
					Scanned:         summary.Scanned,
					AlreadyReviewed: summary.AlreadyReviewed,
					Carried:         summary.Carried,
					SkippedRoots:    summary.SkippedRoots,
					ElapsedMillis:   summary.Elapsed.Milliseconds(),
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued %d files for review (%d scanned, %d already reviewed)\n",
					resp.Count, resp.Scanned, resp.AlreadyReviewed)
				if resume && resp.Carried > 0 {
					fmt.Fprintf(out, "Carried over %d files from the previous queue\n", resp.Carried)
				}
				for _, root := range resp.SkippedRoots {
					fmt.Fprintf(out, "Skipped missing root %s\n", root)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "Keep the unfinished order of the previous queue")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next file awaiting a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				rec, err := sess.NextFile(cmd.Context())
				if err != nil {
					return err
				}
				resp := api.NextResponse{}
				if rec != nil {
					item := api.FromFileRecord(rec, sess.HostPath(rec.Filepath))
					resp.File = &item
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.File == nil {
					fmt.Fprintln(out, "Nothing left to review")
					return nil
				}
				printFile(out, *resp.File, isTerminal(out))
				return nil
			})
		},
	}
}

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List files still awaiting a decision",
		Long:  "List files still awaiting a decision, or with --status the files kept, rejected or found missing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				wanted := records.Status(strings.ToLower(strings.TrimSpace(status)))
				files, err := sess.FilesByStatus(cmd.Context(), wanted)
				if err != nil {
					return err
				}
				items := api.FromFileRecords(files)
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FileListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintf(out, "No %s files\n", wanted)
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{item.Filepath, item.MediaType, formatSize(item.FileSize), formatWhen(item.CreatedAt)})
				}
				fmt.Fprintln(out, renderTable([]string{"Path", "Type", "Size", "Found"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", string(records.StatusPending), "Status to list: pending, kept, rejected or missing")
	return cmd
}

func newKeepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keep <path>...",
		Short: "Mark files as kept",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				return decideEach(cmd, ctx, args, "Kept", sess.Keep)
			})
		},
	}
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <path>",
		Short: "Leave a file pending and move past it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				return decideEach(cmd, ctx, args, "Skipped", sess.Skip)
			})
		},
	}
}

func decideEach(cmd *cobra.Command, ctx *commandContext, paths []string, verb string, fn func(context.Context, string) error) error {
	results := make([]api.DecisionResponse, 0, len(paths))
	var failed int
	for _, path := range paths {
		err := fn(cmd.Context(), path)
		results = append(results, api.FromError(err))
		if err != nil {
			failed++
			if !ctx.jsonOutput() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
			}
			continue
		}
		if !ctx.jsonOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, path)
		}
	}
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, map[string]any{"items": results}); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be updated", failed, len(paths))
	}
	return nil
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <path>...",
		Short: "Move files into the quarantine folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				results := make([]api.MoveResponse, 0, len(args))
				var failed []string
				for _, path := range args {
					resp := api.FromMoveResult(sess.Reject(cmd.Context(), path))
					results = append(results, resp)
					if !resp.Success {
						failed = append(failed, path)
					}
					if !ctx.jsonOutput() {
						printMove(cmd.OutOrStdout(), "Rejected "+path, resp)
					}
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, map[string]any{"items": results}); err != nil {
						return err
					}
				}
				if len(failed) > 0 {
					return fmt.Errorf("reject failed for %s", strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
}
