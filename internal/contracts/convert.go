package contracts

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CoerceArgs converts loosely typed arguments (decimal strings, ints, hex
// strings) into the Go types the ABI packer expects for inputs.
func CoerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("argument count mismatch: want %d, got %d", len(inputs), len(args))
	}
	out := make([]any, len(args))
	for i, input := range inputs {
		value, err := coerce(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		out[i] = value
	}
	return out, nil
}

func coerce(t abi.Type, value any) (any, error) {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, err := AsBigInt(value)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)
	case abi.AddressTy:
		return AsAddress(value)
	case abi.BoolTy:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(v)
		default:
			return nil, fmt.Errorf("unsupported bool type %T", value)
		}
	case abi.StringTy:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	case abi.FixedBytesTy:
		b, err := asBytes(value)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("bytes%d overflow: %d bytes", t.Size, len(b))
		}
		out := reflect.New(t.GetType()).Elem()
		reflect.Copy(out, reflect.ValueOf(b))
		return out.Interface(), nil
	case abi.BytesTy:
		return asBytes(value)
	default:
		return value, nil
	}
}

func sizedInt(t abi.Type, n *big.Int) (any, error) {
	goType := t.GetType()
	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("uint%d overflow: %s", t.Size, n.String())
		}
		if goType.Kind() == reflect.Ptr {
			return n, nil
		}
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	min := new(big.Int).Neg(limit)
	max := new(big.Int).Sub(limit, big.NewInt(1))
	if n.Cmp(min) < 0 || n.Cmp(max) > 0 {
		return nil, fmt.Errorf("int%d overflow: %s", t.Size, n.String())
	}
	if goType.Kind() == reflect.Ptr {
		return n, nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}

// AsBigInt converts numeric values and decimal or 0x-prefixed strings.
func AsBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil big int")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case string:
		s := strings.TrimSpace(v)
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// AsAddress converts an address value or hex string.
func AsAddress(value any) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	case string:
		s := strings.TrimSpace(v)
		if !common.IsHexAddress(s) {
			return common.Address{}, fmt.Errorf("invalid address: %s", v)
		}
		return common.HexToAddress(s), nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case common.Hash:
		return v.Bytes(), nil
	case [32]byte:
		return v[:], nil
	case string:
		b, err := hexutil.Decode(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", v, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported bytes type %T", value)
	}
}
