package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withSession runs fn with a session that is closed afterwards.
func withSession(withIndexer bool, fn func(context.Context, *cobra.Command, *session, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := newSession(ctx, cmd, withIndexer)
		if err != nil {
			return err
		}
		defer s.close()

		if err := fn(ctx, cmd, s, args); err != nil {
			s.logger.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
			return err
		}
		return nil
	}
}

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Print the signing accounts",
		Args:  cobra.NoArgs,
		RunE: withSession(false, func(_ context.Context, cmd *cobra.Command, s *session, _ []string) error {
			for _, addr := range s.runner.Accounts() {
				fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
			}
			return nil
		}),
	}
}

func deployNFTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy-nft",
		Short: "Deploy the NFT, open a public round and record its address",
		Args:  cobra.NoArgs,
		RunE: withSession(false, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			nft, err := s.runner.DeployNFT(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "nft deployed to: %s\n", nft.Hex())
			return nil
		}),
	}
}

func deployAsksV1Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy-asks-v1",
		Short: "Deploy and wire the marketplace modules for the recorded NFT",
		Args:  cobra.NoArgs,
		RunE: withSession(false, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			deployed, err := s.runner.DeployAsksV1(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "moduleManager: %s\n", deployed.ModuleManager)
			fmt.Fprintf(out, "erc721TransferHelper: %s\n", deployed.ERC721TransferHelper)
			fmt.Fprintf(out, "erc20TransferHelper: %s\n", deployed.ERC20TransferHelper)
			fmt.Fprintf(out, "royaltyFeeRegistry: %s\n", deployed.RoyaltyFeeRegistry)
			fmt.Fprintf(out, "royaltyFeeManager: %s\n", deployed.RoyaltyFeeManager)
			fmt.Fprintf(out, "currencyManager: %s\n", deployed.CurrencyManager)
			fmt.Fprintf(out, "collectionManager: %s\n", deployed.CollectionManager)
			fmt.Fprintf(out, "asksV1: %s\n", deployed.AsksV1)
			return nil
		}),
	}
}

func setUnrevealedURICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-unrevealed-uri <uri>",
		Short: "Set the metadata URI served before reveal",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(false, func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
			return s.runner.SetUnrevealedURI(ctx, args[0])
		}),
	}
}

func setBaseURICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-base-uri <uri>",
		Short: "Set the metadata base URI served after reveal",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(false, func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
			return s.runner.SetBaseURI(ctx, args[0])
		}),
	}
}

func publicMintWithPermitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "public-mint-with-permit",
		Short: "Mint from the public round paying with a permit signature",
		Args:  cobra.NoArgs,
		RunE: withSession(false, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			result, err := s.runner.PublicMintWithPermit(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hash %s\n", result.TxHash.Hex())
			for _, id := range result.TokenIDs {
				fmt.Fprintf(out, "tokenId %s just minted.\n", id)
			}
			return nil
		}),
	}
}

func requestRandomSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request-random-seed",
		Short: "Request the random seed that reveals the recorded NFT",
		Args:  cobra.NoArgs,
		RunE: withSession(false, func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
			return s.runner.RequestRandomSeed(ctx)
		}),
	}
}

func revealTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reveal-test",
		Short: "Deploy, mint, reveal and poll the metadata API until it reports the reveal",
		Args:  cobra.NoArgs,
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			report, err := s.runner.RevealTest(ctx)
			if report != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "nft %s\n", report.NFT.Hex())
				for id, value := range report.Final.Values() {
					fmt.Fprintf(out, "token[%s] %s\n", id, value)
				}
				fmt.Fprintf(out, "started test %s\n", report.StartedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "end     test %s\n", report.FinishedAt.Format(time.RFC3339))
			}
			return err
		}),
	}
}
