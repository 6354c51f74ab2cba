package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"triage/internal/api"
	"triage/internal/session"
)

const reviewHelp = "[k]eep  [r]eject  [s]kip  [q]uit"

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var scan bool
	var resume bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the queue interactively",
		Long: "Review presents one file at a time and reads a single-letter decision per line:\n" +
			"k keeps, r rejects into quarantine, s skips for this session and q quits.\n" +
			"Progress is saved after every decision.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scan && resume {
				return errors.New("--scan and --resume are mutually exclusive")
			}
			return ctx.withSession(func(sess *session.Session) error {
				switch {
				case scan:
					if _, err := sess.InitializeScan(cmd.Context()); err != nil {
						return err
					}
				case resume:
					if _, err := sess.Resume(cmd.Context()); err != nil {
						return err
					}
				default:
					if err := sess.Load(cmd.Context()); err != nil {
						return err
					}
				}
				return runReview(cmd, sess)
			})
		},
	}
	cmd.Flags().BoolVar(&scan, "scan", false, "Rescan and reshuffle before reviewing")
	cmd.Flags().BoolVar(&resume, "resume", false, "Rescan and append new files to the saved queue before reviewing")
	return cmd
}

type reviewTally struct {
	kept, rejected, skipped int
}

func runReview(cmd *cobra.Command, sess *session.Session) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	color := isTerminal(out)
	interactive := isTerminal(cmd.InOrStdin())
	var tally reviewTally

	defer func() {
		fmt.Fprintf(out, "Session: %d kept, %d rejected, %d skipped\n", tally.kept, tally.rejected, tally.skipped)
	}()

	for {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		rec, err := sess.NextFile(cmd.Context())
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Fprintln(out, "Nothing left to review")
			return nil
		}
		item := api.FromFileRecord(rec, sess.HostPath(rec.Filepath))
		printFile(out, item, color)

		for decided := false; !decided; {
			if interactive {
				fmt.Fprintf(out, "%s > ", reviewHelp)
			}
			line, err := in.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read decision: %w", err)
			}
			choice := strings.ToLower(strings.TrimSpace(line))
			if choice == "" && errors.Is(err, io.EOF) {
				return nil
			}
			switch choice {
			case "k", "keep":
				if kerr := sess.Keep(cmd.Context(), rec.Filepath); kerr != nil {
					fmt.Fprintf(out, "Keep failed: %v\n", kerr)
					_ = sess.Skip(cmd.Context(), rec.Filepath)
				} else {
					tally.kept++
				}
				decided = true
			case "r", "reject":
				resp := api.FromMoveResult(sess.Reject(cmd.Context(), rec.Filepath))
				printMove(out, "Rejected", resp)
				if resp.Success {
					tally.rejected++
				} else {
					// Still pending; do not offer it again this session.
					_ = sess.Skip(cmd.Context(), rec.Filepath)
				}
				decided = true
			case "s", "skip":
				if serr := sess.Skip(cmd.Context(), rec.Filepath); serr != nil {
					return serr
				}
				tally.skipped++
				decided = true
			case "q", "quit":
				return nil
			default:
				fmt.Fprintf(out, "Unknown choice %q; use %s\n", choice, reviewHelp)
			}
			if errors.Is(err, io.EOF) && !decided {
				return nil
			}
		}
	}
}
