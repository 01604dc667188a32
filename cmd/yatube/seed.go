package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yatube/simulator"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	seedConfig   = simulator.DefaultConfig()
	seedDuration time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the store with generated users, groups, posts and follows",
	Long: `Fill the store with generated users, groups, posts and follows.
With --duration the command keeps producing posts and comments for that long,
which is useful as a load generator against a running database.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedConfig.Prefix, "prefix", seedConfig.Prefix, "username and slug prefix")
	f.IntVar(&seedConfig.NumUsers, "users", seedConfig.NumUsers, "number of users")
	f.IntVar(&seedConfig.NumGroups, "groups", seedConfig.NumGroups, "number of groups")
	f.IntVar(&seedConfig.PostsPerUser, "posts-per-user", seedConfig.PostsPerUser, "mean posts per user")
	f.Float64Var(&seedConfig.CommentsPerPost, "comments-per-post", seedConfig.CommentsPerPost, "mean comments per post")
	f.IntVar(&seedConfig.FollowsPerUser, "follows-per-user", seedConfig.FollowsPerUser, "maximum follows per user")
	f.Float64Var(&seedConfig.ZipfS, "zipf", seedConfig.ZipfS, "Zipf skew, must be > 1")
	f.IntVar(&seedConfig.Workers, "workers", seedConfig.Workers, "concurrent writers")
	f.Int64Var(&seedConfig.Seed, "seed", seedConfig.Seed, "random seed")
	f.DurationVar(&seedDuration, "duration", 0, "keep simulating activity for this long after seeding")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	seeder := simulator.NewSeeder(db, seedConfig, a.logger)
	if seedDuration > 0 {
		runCtx, cancel := context.WithTimeout(ctx, seedDuration)
		defer cancel()
		err = seeder.Run(runCtx)
	} else {
		err = seeder.Seed(ctx)
	}
	if err != nil {
		return err
	}

	m := seeder.GetMetrics()
	a.logger.Info("seeding finished",
		slog.String("users", humanize.Comma(int64(m.TotalUsers))),
		slog.String("groups", humanize.Comma(int64(m.TotalGroups))),
		slog.String("posts", humanize.Comma(int64(m.TotalPosts))),
		slog.String("comments", humanize.Comma(int64(m.TotalComments))),
		slog.String("follows", humanize.Comma(int64(m.TotalFollows))),
		slog.Duration("average_latency", m.AverageLatency),
		slog.Int("errors", m.ErrorCount),
	)
	return nil
}
