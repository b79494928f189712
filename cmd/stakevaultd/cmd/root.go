package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/spf13/cobra"

	"github.com/openalpha/stakevault/api"
	"github.com/openalpha/stakevault/api/websocket"
	"github.com/openalpha/stakevault/custody"
	"github.com/openalpha/stakevault/x/vault/keeper"
	"github.com/openalpha/stakevault/x/vault/types"
)

// NewRootCmd creates a new root command for stakevaultd
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stakevaultd",
		Short: "StakeVault - pooled staking vault engine",
		Long: `StakeVault runs a pooled staking vault: participants deposit a single
asset for proportional shares, rewards accrue to the pool, and withdrawals
settle through a delayed two-phase request and claim flow.`,
	}

	rootCmd.AddCommand(
		StartCmd(),
		VersionCmd(),
	)

	return rootCmd
}

// StartCmd returns the command that runs the engine and its API
func StartCmd() *cobra.Command {
	var (
		host            string
		port            int
		dbBackend       string
		dbDir           string
		admin           string
		withdrawalDelay time.Duration
		normalFeeBps    int64
		earlyFeeBps     int64
		rejectEarly     bool
		noRateLimit     bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vault engine and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewLogger(os.Stderr)

			backend := dbm.BackendType(dbBackend)
			vaultDB, err := dbm.NewDB("vault", backend, dbDir)
			if err != nil {
				return fmt.Errorf("open vault db: %w", err)
			}
			defer vaultDB.Close()

			custodyDB, err := dbm.NewDB("custody", backend, dbDir)
			if err != nil {
				return fmt.Errorf("open custody db: %w", err)
			}
			defer custodyDB.Close()

			params := types.Params{
				WithdrawalDelay: withdrawalDelay,
				NormalFeeBps:    normalFeeBps,
				EarlyFeeBps:     earlyFeeBps,
				AllowEarlyClaim: !rejectEarly,
			}

			ledger := custody.NewLedger(custodyDB, logger)
			hub := websocket.NewHub(nil)

			k, err := keeper.NewKeeper(vaultDB, ledger, nil, hub, params, admin, logger)
			if err != nil {
				return fmt.Errorf("init keeper: %w", err)
			}

			server := api.NewServer(&api.Config{
				Host:             host,
				Port:             port,
				ReadTimeout:      30 * time.Second,
				WriteTimeout:     30 * time.Second,
				DisableRateLimit: noRateLimit,
			}, k, ledger, hub, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			logger.Info("stakevaultd started",
				"addr", fmt.Sprintf("%s:%d", host, port),
				"db_backend", dbBackend,
				"withdrawal_delay", withdrawalDelay.String(),
				"normal_fee_bps", normalFeeBps,
				"early_fee_bps", earlyFeeBps,
			)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				logger.Info("shutting down", "signal", sig.String())
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Stop(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "API listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "API listen port")
	cmd.Flags().StringVar(&dbBackend, "db-backend", string(dbm.GoLevelDBBackend), "Database backend (goleveldb|memdb)")
	cmd.Flags().StringVar(&dbDir, "db-dir", "data", "Database directory")
	cmd.Flags().StringVar(&admin, "admin", "", "Admin identity seeded on first start")
	cmd.Flags().DurationVar(&withdrawalDelay, "withdrawal-delay", types.DefaultWithdrawalDelay, "Delay before a withdrawal matures")
	cmd.Flags().Int64Var(&normalFeeBps, "normal-fee-bps", types.DefaultNormalFeeBps, "Profit fee in bps for mature claims")
	cmd.Flags().Int64Var(&earlyFeeBps, "early-fee-bps", types.DefaultEarlyFeeBps, "Profit fee in bps for early claims")
	cmd.Flags().BoolVar(&rejectEarly, "reject-early-claims", false, "Reject claims before maturity instead of charging the early fee")
	cmd.Flags().BoolVar(&noRateLimit, "no-rate-limit", false, "Disable API rate limiting")

	return cmd
}

// VersionCmd returns a command to print the version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("StakeVault v0.1.0")
		},
	}
}
