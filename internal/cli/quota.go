package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajibrjb/AiResumeParserApi/internal/common"
	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/quota"
	"github.com/rajibrjb/AiResumeParserApi/internal/types"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and administer the daily request quota",
	Long: `Administer the Redis-backed daily quota directly, without going through
the HTTP API. Requires the quota store to be reachable.`,
}

var quotaIdentity string

var quotaGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show today's usage for one identity",
	RunE:  runQuotaGet,
}

var quotaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear today's counter for one identity",
	RunE:  runQuotaReset,
}

var quotaStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's usage across all identities",
	RunE:  runQuotaStats,
}

func init() {
	for _, cmd := range []*cobra.Command{quotaGetCmd, quotaResetCmd} {
		cmd.Flags().StringVar(&quotaIdentity, "identity", "", "Caller identity (API key or IP)")
		_ = cmd.MarkFlagRequired("identity")
	}

	quotaCmd.AddCommand(quotaGetCmd)
	quotaCmd.AddCommand(quotaResetCmd)
	quotaCmd.AddCommand(quotaStatsCmd)
}

// connectQuota opens a quota store connection for admin commands. Unlike the
// serving path this fails hard when the store is unreachable.
func connectQuota(cmd *cobra.Command) (*quota.Counter, *config.Config, *errors.Logger, error) {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	client := quota.NewClient(cfg.Quota.Redis.Addr, cfg.Quota.Redis.Password, cfg.Quota.Redis.DB)
	counter := quota.NewCounter(client, logger, time.Local)

	if err := counter.Ping(cmd.Context()); err != nil {
		return nil, nil, nil, fmt.Errorf("quota store unreachable at %s: %w", cfg.Quota.Redis.Addr, err)
	}
	return counter, cfg, logger, nil
}

func runQuotaGet(cmd *cobra.Command, args []string) error {
	counter, cfg, logger, err := connectQuota(cmd)
	if err != nil {
		return err
	}
	defer counter.Close()

	used := counter.GetCurrentCount(cmd.Context(), quotaIdentity)
	remaining := cfg.Quota.DailyMax - used
	if remaining < 0 {
		remaining = 0
	}

	return common.NewOutputHandler(logger).HandleOutput(types.QuotaStatus{
		Identity:  quotaIdentity,
		Used:      used,
		Limit:     cfg.Quota.DailyMax,
		Remaining: remaining,
	}, common.CommandConfig{})
}

func runQuotaReset(cmd *cobra.Command, args []string) error {
	counter, _, logger, err := connectQuota(cmd)
	if err != nil {
		return err
	}
	defer counter.Close()

	counter.ResetLimit(cmd.Context(), quotaIdentity)
	logger.Info("Quota reset", "identity", quotaIdentity)
	fmt.Printf("Quota reset for %s\n", quotaIdentity)
	return nil
}

func runQuotaStats(cmd *cobra.Command, args []string) error {
	counter, _, logger, err := connectQuota(cmd)
	if err != nil {
		return err
	}
	defer counter.Close()

	return common.NewOutputHandler(logger).HandleOutput(
		counter.GetStats(cmd.Context()), common.CommandConfig{})
}
