package main

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftops/internal/config"
)

func TestBuildSettings(t *testing.T) {
	cfg := config.Config{
		Network:           "mumbai",
		OutputDir:         "./output",
		VerifyTool:        "hardhat",
		PaymentToken:      "0x00000000000000000000000000000000000000a2",
		TeamAddress:       "0x00000000000000000000000000000000000000a1",
		NFTName:           "CYK721",
		MaxTotalSupply:    "10",
		MintPrice:         "1",
		PermitDeadline:    time.Hour,
		PollMaxIterations: 60,
	}

	settings, err := buildSettings(cfg)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.NFT.PaymentToken != common.HexToAddress(cfg.PaymentToken) {
		t.Fatalf("payment token mismatch: %s", settings.NFT.PaymentToken.Hex())
	}
	if settings.NFT.TrustedForwarder != (common.Address{}) {
		t.Fatalf("unset forwarder must stay zero")
	}
	if settings.Mint.PermitDeadline != time.Hour || settings.Reveal.MaxIterations != 60 {
		t.Fatalf("settings mismatch: %+v", settings)
	}

	cfg.TrustedForwarder = "0x1234"
	if _, err := buildSettings(cfg); err == nil {
		t.Fatalf("expected error for malformed address")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("logger: %v", err)
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
