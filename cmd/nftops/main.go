package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "nftops",
		Short:        "NFT deployment, mint and reveal automation",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("env-file", "", "dotenv file path (default ./.env when present)")
	flags.String("rpc", "", "JSON-RPC URL")
	flags.String("private-key", "", "hex private key of the signing account")
	flags.String("network", "mumbai", "network name used in verify scripts")
	flags.String("output-dir", "./output", "directory for contract.json and verify scripts")
	flags.String("contracts-file", "", "address book path (default <output-dir>/contract.json)")
	flags.String("artifacts-dir", "./artifacts", "compiled contract artifacts directory")
	flags.String("verify-tool", "hardhat", "tool named in verify script lines")
	flags.String("history", "", "history JSONL path (default <output-dir>/history.jsonl)")
	flags.String("pg-dsn", "", "Postgres DSN; when set history is written to Postgres")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	flags.String("payment-token", "", "ERC-20 permit token used for payments")
	flags.String("team-address", "", "NFT team address")
	flags.String("trusted-forwarder", "", "NFT trusted forwarder address")
	flags.String("nft-name", "CYK721", "NFT name")
	flags.String("nft-symbol", "CYK721", "NFT symbol")
	flags.String("max-total-supply", "10", "NFT max total supply")
	flags.String("team-supply", "0", "NFT team supply")
	flags.String("max-mint-per-account", "10", "public round max mint per account")
	flags.String("max-mint", "10", "public round max mint")
	flags.String("unrevealed-uri", "", "metadata URI served before reveal")
	flags.String("base-uri", "", "metadata base URI served after reveal")

	flags.String("mint-quantity", "10", "tokens to mint")
	flags.String("mint-round", "1", "round id to mint from")
	flags.String("mint-price", "1", "price per token in payment token units")
	flags.Duration("permit-deadline", time.Hour, "permit validity window")

	flags.String("royalty-fee-limit", "5000", "royalty fee registry limit (basis points)")
	flags.String("protocol-fee", "500", "asks protocol fee (basis points)")

	flags.String("indexer-url", "https://nft.api.infura.io", "NFT metadata API base URL")
	flags.String("indexer-api-key", "", "NFT metadata API key")
	flags.String("indexer-api-secret", "", "NFT metadata API secret")
	flags.Duration("indexer-timeout", 30*time.Second, "NFT metadata API request timeout")
	flags.Duration("poll-interval", time.Minute, "reveal poll interval")
	flags.Int("poll-max-iterations", 60, "reveal poll iteration ceiling")
	flags.Duration("settle-delay", 30*time.Second, "wait between the two unrevealed checks")

	root.AddCommand(
		accountsCmd(),
		deployNFTCmd(),
		deployAsksV1Cmd(),
		setUnrevealedURICmd(),
		setBaseURICmd(),
		publicMintWithPermitCmd(),
		requestRandomSeedCmd(),
		revealTestCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
