package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, .env or config file.
type Config struct {
	RPCURL        string
	PrivateKey    string
	Network       string
	OutputDir     string
	ContractsFile string
	ArtifactsDir  string
	VerifyTool    string
	History       string
	PGDSN         string
	LogLevel      string

	PaymentToken     string
	TeamAddress      string
	TrustedForwarder string

	NFTName           string
	NFTSymbol         string
	MaxTotalSupply    string
	TeamSupply        string
	MaxMintPerAccount string
	MaxMint           string
	UnrevealedURI     string
	BaseURI           string

	MintQuantity   string
	MintRound      string
	MintPrice      string
	PermitDeadline time.Duration

	RoyaltyFeeLimit string
	ProtocolFee     string

	IndexerURL       string
	IndexerAPIKey    string
	IndexerAPISecret string
	IndexerTimeout   time.Duration

	PollInterval      time.Duration
	PollMaxIterations int
	SettleDelay       time.Duration
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile, envFile string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("NFTOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// The metadata API credentials keep the names the hardhat setup used.
	if err := v.BindEnv("indexer-api-key", "NFTOPS_INDEXER_API_KEY", "INFURA_APIKEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("indexer-api-secret", "NFTOPS_INDEXER_API_SECRET", "INFURA_SECRET"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	v.SetDefault("network", "mumbai")
	v.SetDefault("output-dir", "./output")
	v.SetDefault("artifacts-dir", "./artifacts")
	v.SetDefault("verify-tool", "hardhat")
	v.SetDefault("log-level", "info")
	v.SetDefault("nft-name", "CYK721")
	v.SetDefault("nft-symbol", "CYK721")
	v.SetDefault("max-total-supply", "10")
	v.SetDefault("team-supply", "0")
	v.SetDefault("max-mint-per-account", "10")
	v.SetDefault("max-mint", "10")
	v.SetDefault("mint-quantity", "10")
	v.SetDefault("mint-round", "1")
	v.SetDefault("mint-price", "1")
	v.SetDefault("permit-deadline", time.Hour)
	v.SetDefault("royalty-fee-limit", "5000")
	v.SetDefault("protocol-fee", "500")
	v.SetDefault("indexer-url", "https://nft.api.infura.io")
	v.SetDefault("indexer-timeout", 30*time.Second)
	v.SetDefault("poll-interval", time.Minute)
	v.SetDefault("poll-max-iterations", 60)
	v.SetDefault("settle-delay", 30*time.Second)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:        v.GetString("rpc"),
		PrivateKey:    v.GetString("private-key"),
		Network:       v.GetString("network"),
		OutputDir:     v.GetString("output-dir"),
		ContractsFile: v.GetString("contracts-file"),
		ArtifactsDir:  v.GetString("artifacts-dir"),
		VerifyTool:    v.GetString("verify-tool"),
		History:       v.GetString("history"),
		PGDSN:         v.GetString("pg-dsn"),
		LogLevel:      v.GetString("log-level"),

		PaymentToken:     v.GetString("payment-token"),
		TeamAddress:      v.GetString("team-address"),
		TrustedForwarder: v.GetString("trusted-forwarder"),

		NFTName:           v.GetString("nft-name"),
		NFTSymbol:         v.GetString("nft-symbol"),
		MaxTotalSupply:    v.GetString("max-total-supply"),
		TeamSupply:        v.GetString("team-supply"),
		MaxMintPerAccount: v.GetString("max-mint-per-account"),
		MaxMint:           v.GetString("max-mint"),
		UnrevealedURI:     v.GetString("unrevealed-uri"),
		BaseURI:           v.GetString("base-uri"),

		MintQuantity:   v.GetString("mint-quantity"),
		MintRound:      v.GetString("mint-round"),
		MintPrice:      v.GetString("mint-price"),
		PermitDeadline: v.GetDuration("permit-deadline"),

		RoyaltyFeeLimit: v.GetString("royalty-fee-limit"),
		ProtocolFee:     v.GetString("protocol-fee"),

		IndexerURL:       v.GetString("indexer-url"),
		IndexerAPIKey:    v.GetString("indexer-api-key"),
		IndexerAPISecret: v.GetString("indexer-api-secret"),
		IndexerTimeout:   v.GetDuration("indexer-timeout"),

		PollInterval:      v.GetDuration("poll-interval"),
		PollMaxIterations: v.GetInt("poll-max-iterations"),
		SettleDelay:       v.GetDuration("settle-delay"),
	}

	if cfg.ContractsFile == "" {
		cfg.ContractsFile = filepath.Join(cfg.OutputDir, "contract.json")
	}
	if cfg.History == "" {
		cfg.History = filepath.Join(cfg.OutputDir, "history.jsonl")
	}

	return cfg, nil
}

// RequireChain checks the settings every on-chain command needs.
func (c Config) RequireChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	return nil
}

// RequireIndexer checks the metadata API settings.
func (c Config) RequireIndexer() error {
	if c.IndexerURL == "" {
		return fmt.Errorf("indexer url is required")
	}
	if c.IndexerAPIKey == "" || c.IndexerAPISecret == "" {
		return fmt.Errorf("indexer api key and secret are required")
	}
	if c.PollMaxIterations <= 0 {
		return fmt.Errorf("poll max iterations must be greater than zero")
	}
	return nil
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
