package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"triage/internal/api"
	"triage/internal/config"
	"triage/internal/session"
)

func newRejectedCommand(ctx *commandContext) *cobra.Command {
	rejectedCmd := &cobra.Command{
		Use:   "rejected",
		Short: "Inspect and manage quarantined files",
	}
	rejectedCmd.AddCommand(newRejectedListCommand(ctx))
	rejectedCmd.AddCommand(newRejectedRestoreCommand(ctx))
	rejectedCmd.AddCommand(newRejectedPurgeCommand(ctx))
	rejectedCmd.AddCommand(newRejectedExportCommand(ctx))
	return rejectedCmd
}

func newRejectedListCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List quarantined files, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				list := sess.RejectedFiles
				if all {
					list = sess.RejectionHistory
				}
				items := api.FromRejectedRecords(list(cmd.Context()))
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.RejectedListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Quarantine is empty")
					return nil
				}
				headers := []string{"Original", "Quarantined", "Rejected"}
				if all {
					headers = append(headers, "Purged")
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					row := []string{item.OriginalPath, item.DeletedPath, formatWhen(item.RejectedAt)}
					if all {
						row = append(row, formatWhen(item.PurgedAt))
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable(headers, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include purged records")
	return cmd
}

func newRejectedRestoreCommand(ctx *commandContext) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "restore <quarantined-path>",
		Short: "Move a quarantined file back to where it came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				deleted := args[0]
				original := strings.TrimSpace(to)
				if original == "" {
					found, ok := originalFor(sess, cmd, deleted)
					if !ok {
						return fmt.Errorf("%s is not a quarantined file; see `triage rejected list`", deleted)
					}
					original = found
				}
				return reportMove(cmd, ctx, "Restored", api.FromMoveResult(sess.Restore(cmd.Context(), original, deleted)))
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Original location recorded for the file (looked up when omitted)")
	return cmd
}

// originalFor looks up the recorded original location for a quarantined
// path, accepting either the stored location or its host form.
func originalFor(sess *session.Session, cmd *cobra.Command, deleted string) (string, bool) {
	for _, rec := range sess.RejectedFiles(cmd.Context()) {
		if rec.DeletedPath == deleted || sess.HostPath(rec.DeletedPath) == deleted {
			return rec.OriginalPath, true
		}
	}
	return "", false
}

func newRejectedPurgeCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge <quarantined-path>",
		Short: "Permanently delete a quarantined file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge cannot be undone; rerun with --yes to delete %s", args[0])
			}
			return ctx.withSession(func(sess *session.Session) error {
				return reportMove(cmd, ctx, "Purged", api.FromMoveResult(sess.PermanentlyDelete(cmd.Context(), args[0])))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm permanent deletion")
	return cmd
}

func reportMove(cmd *cobra.Command, ctx *commandContext, verb string, resp api.MoveResponse) error {
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, resp); err != nil {
			return err
		}
	} else {
		printMove(cmd.OutOrStdout(), verb, resp)
	}
	if !resp.Success {
		return fmt.Errorf("%s failed: %s", strings.ToLower(verb), resp.ErrorKind)
	}
	return nil
}

func newRejectedExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one \"original -> quarantined\" line per restorable file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				target := strings.TrimSpace(output)
				if target == "" || target == "-" {
					_, err := sess.ExportRejected(cmd.Context(), cmd.OutOrStdout())
					return err
				}
				path, err := config.ExpandPath(target)
				if err != nil {
					return err
				}
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				count, err := sess.ExportRejected(cmd.Context(), file)
				if cerr := file.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", count, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (stdout when omitted)")
	return cmd
}
