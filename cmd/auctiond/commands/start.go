package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/auctionledger/auctiond/internal/node"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/libs/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the auction ledger node",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(conf.DBDir(), 0o700); err != nil {
			return err
		}

		n, err := node.NewNode(conf, logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := n.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		logger.Info("shutting down")
		if err := n.Stop(); err != nil && err != service.ErrAlreadyStopped {
			logger.Error("error during shutdown", "err", err)
		}
		n.Wait()
		return nil
	},
}
