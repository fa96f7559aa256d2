package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"palmpay/config"
	pgStorage "palmpay/internal/adapter/storage/postgres"
	"palmpay/internal/core/ports"
	"palmpay/internal/service"
	"palmpay/pkg/apperror"
	"palmpay/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ledgerStore is the storage the pending sweep works against.
type ledgerStore struct {
	wallets    ports.WalletRepository
	txs        ports.TransactionRepository
	identities ports.IdentityRepository
	transactor ports.DBTransactor
	close      func()
}

// openLedgerStore connects to the configured database. Only Postgres holds
// state that outlives a process, so the memory driver is refused.
var openLedgerStore = func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ledgerStore, error) {
	if cfg.Database.Driver != "" && cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("pending needs database.driver %q, got %q", config.DriverPostgres, cfg.Database.Driver)
	}
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &ledgerStore{
		wallets:    pgStorage.NewWalletRepo(pool),
		txs:        pgStorage.NewTransactionRepo(pool),
		identities: pgStorage.NewIdentityRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		close:      pool.Close,
	}, nil
}

func pendingCmd() *cobra.Command {
	var (
		configPath string
		olderThan  time.Duration
		limit      int
		expire     bool
	)

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List top-ups still waiting for the gateway",
		Long: `Lists PENDING top-ups created more than --older-than ago, oldest first.
With --expire each listed top-up is moved to FAILED. Only expire top-ups
whose gateway order can no longer be paid, or a late capture will find the
top-up closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := logger.Component(logger.NewWithWriter(cfg.Log.Level, cmd.ErrOrStderr()), "palmctl")

			ctx := cmd.Context()
			store, err := openLedgerStore(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("opening storage: %w", err)
			}
			defer store.close()

			walletSvc := service.NewWalletService(store.wallets, store.txs, nil, log)
			pending, err := walletSvc.ListPendingTopups(ctx, olderThan, limit)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TRANSACTION\tWALLET\tAMOUNT\tCREATED\tAGE")
			for _, txn := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					txn.ID, txn.WalletID, txn.Amount.StringFixed(2),
					txn.CreatedAt.UTC().Format(time.RFC3339), now.Sub(txn.CreatedAt).Round(time.Second))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !expire {
				return nil
			}

			ledger := service.NewLedgerService(store.wallets, store.txs, store.identities, store.transactor, log)
			expired := 0
			for _, txn := range pending {
				if _, err := ledger.FailTopup(ctx, txn.ID, "", cfg.Gateway.Provider); err != nil {
					if apperror.HasCode(err, apperror.CodeAlreadyProcessed) {
						// Settled since it was listed.
						continue
					}
					return fmt.Errorf("expiring %s: %w", txn.ID, err)
				}
				expired++
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "expired %d of %d pending top-ups\n", expired, len(pending))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "Only list top-ups opened longer ago than this")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of top-ups to list (at most 100)")
	cmd.Flags().BoolVar(&expire, "expire", false, "Mark the listed top-ups FAILED")

	return cmd
}
