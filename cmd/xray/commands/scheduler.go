package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/xray/internal/scheduler"
	"github.com/wonny/xray/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
  holdings_refresh - nightly refresh of stale cached fund holdings
  pipeline_run     - nightly full pipeline run
  community_sync   - nightly metadata sync from the community service

Example:
  go run ./cmd/xray scheduler start
  go run ./cmd/xray scheduler list
  go run ./cmd/xray scheduler run holdings_refresh
  go run ./cmd/xray scheduler status`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showJobStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// newScheduler registers every job against freshly wired dependencies
func newScheduler(d *deps) *scheduler.Scheduler {
	sched := scheduler.New(d.log)

	if err := sched.AddJob(jobs.NewHoldingsRefreshJob(d.holdingsCache, d.decomposer, d.cfg, d.log)); err != nil {
		d.log.WithError(err).Warn("Failed to register holdings refresh job")
	}
	if err := sched.AddJob(jobs.NewPipelineRunJob(d.orchestrator, "main", d.log)); err != nil {
		d.log.WithError(err).Warn("Failed to register pipeline run job")
	}
	if d.community != nil {
		if err := sched.AddJob(jobs.NewCommunitySyncJob(d.identifiers, d.community, d.log)); err != nil {
			d.log.WithError(err).Warn("Failed to register community sync job")
		}
	}

	return sched
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== xray Scheduler ===")

	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	sched := newScheduler(d)
	sched.Start()

	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	sched := newScheduler(d)

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	d, err := initDeps(printProgress)
	if err != nil {
		return err
	}
	defer d.Close()

	sched := newScheduler(d)

	fmt.Printf("Running job %s...\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	// RunJob is asynchronous; wait for the history entry
	return waitForJobResult(sched, jobName)
}

func waitForJobResult(sched *scheduler.Scheduler, jobName string) error {
	for {
		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return err
		}
		if latest := history.GetLatestResults(1); len(latest) > 0 {
			r := latest[0]
			if r.Success {
				fmt.Printf("Job %s completed in %.2fs\n", jobName, r.Duration.Seconds())
				return nil
			}
			return fmt.Errorf("job %s failed: %s", jobName, r.Error)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func showJobStatus(cmd *cobra.Command, args []string) error {
	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	sched := newScheduler(d)

	printHeader("Job statistics")
	for name, stats := range sched.GetJobStats() {
		fmt.Printf("  %-20s runs=%d success=%d failure=%d rate=%.0f%%\n",
			name, stats.TotalRuns, stats.SuccessCount, stats.FailureCount, stats.SuccessRate*100)
	}
	fmt.Println()
	return nil
}
