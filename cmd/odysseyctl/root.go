package main

import (
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	redis := &asynq.RedisClientOpt{Addr: envOr("REDIS_ADDR", "127.0.0.1:6379"), Password: os.Getenv("REDIS_PASSWORD")}

	root := &cobra.Command{
		Use:           "odysseyctl",
		Short:         "Operator tooling for the Odyssey admin service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&redis.Addr, "redis", redis.Addr, "redis address used by the job queue")
	root.PersistentFlags().IntVar(&redis.DB, "redis-db", 0, "redis database")
	root.AddCommand(newGroupCmd(), newJobsCmd(redis))
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
