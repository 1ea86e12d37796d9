package ledger

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const scriptHeader = "#!/bin/bash\n\n"

func scriptPath(outputDir, network string) string {
	return filepath.Join(outputDir, "verify-script."+network)
}

func initScript(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create script dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(scriptHeader), 0o755); err != nil {
		return fmt.Errorf("init verify script: %w", err)
	}
	// WriteFile keeps the mode of an existing file and is subject to umask.
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("chmod verify script: %w", err)
	}
	return nil
}

func appendLine(path, line string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o755)
	if err != nil {
		return fmt.Errorf("open verify script: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append verify script: %w", err)
	}
	return nil
}

func verifyLine(tool, network string, address common.Address, args []string) string {
	parts := []string{"npx", tool, "verify", "--network", network, address.Hex()}
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func renderArgs(args []any) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = renderArg(arg)
	}
	return out
}

func renderArg(arg any) string {
	switch v := arg.(type) {
	case common.Address:
		return v.Hex()
	case *big.Int:
		if v == nil {
			return "0"
		}
		return v.String()
	case common.Hash:
		return v.Hex()
	case [32]byte:
		return common.Hash(v).Hex()
	case []byte:
		return hexutil.Encode(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func shellQuote(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n'\"$`\\;&|<>()*?!#") {
		return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return arg
}
