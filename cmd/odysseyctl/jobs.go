package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-admin/jobs"
)

func newJobsCmd(redis *asynq.RedisClientOpt) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	cmd.AddCommand(newTriggerCmd(redis), newStatsCmd(redis))
	return cmd
}

func newTriggerCmd(redis *asynq.RedisClientOpt) *cobra.Command {
	var (
		insured   []string
		year      int
		pages     int
		refresh   bool
		retention time.Duration
	)
	cmd := &cobra.Command{
		Use:       "trigger <limits-warmup|journal-cleanup>",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"limits-warmup", "journal-cleanup"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := jobs.NewClient(*redis)
			defer client.Close()

			var (
				info *asynq.TaskInfo
				err  error
			)
			switch args[0] {
			case "limits-warmup":
				if len(insured) == 0 {
					return fmt.Errorf("limits-warmup needs --insured")
				}
				info, err = client.EnqueueLimitsWarmup(cmd.Context(), jobs.LimitsWarmupPayload{
					InsuredIDs: insured, Year: year, Pages: pages, Refresh: refresh,
				})
			case "journal-cleanup":
				info, err = client.EnqueueJournalCleanup(cmd.Context(), jobs.JournalCleanupPayload{Retention: retention})
			default:
				return fmt.Errorf("unsupported job %q (want %s)", args[0], strings.Join(cmd.ValidArgs, ", "))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&insured, "insured", nil, "insured person IDs to warm")
	cmd.Flags().IntVar(&year, "year", 0, "limit year (defaults to the current year)")
	cmd.Flags().IntVar(&pages, "pages", 1, "pages to warm per insured person")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "invalidate the limits cache first")
	cmd.Flags().DurationVar(&retention, "retention", 0, "override the journal retention")
	return cmd
}

func newStatsCmd(redis *asynq.RedisClientOpt) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inspector := asynq.NewInspector(*redis)
			defer inspector.Close()

			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Failed)
			return nil
		},
	}
}
