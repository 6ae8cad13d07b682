package main

import (
	"fmt"
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/native/splits"
)

type amountFlag struct {
	value *uint256.Int
}

func (f *amountFlag) String() string {
	if f == nil || f.value == nil {
		return "0"
	}
	return f.value.Dec()
}

func (f *amountFlag) Set(raw string) error {
	v, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid amount %q", raw)
	}
	f.value = v
	return nil
}

// Int returns the parsed amount or zero.
func (f *amountFlag) Int() *uint256.Int {
	if f.value == nil {
		return new(uint256.Int)
	}
	return f.value
}

type addressFlag struct {
	value ethcommon.Address
}

func (f *addressFlag) String() string { return f.value.Hex() }

func (f *addressFlag) Set(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if !ethcommon.IsHexAddress(trimmed) {
		return fmt.Errorf("invalid address %q", raw)
	}
	f.value = ethcommon.HexToAddress(trimmed)
	return nil
}

type idsFlag struct {
	values []uint64
}

func (f *idsFlag) String() string {
	parts := make([]string, len(f.values))
	for i, v := range f.values {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func (f *idsFlag) Set(raw string) error {
	f.values = f.values[:0]
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", part)
		}
		f.values = append(f.values, id)
	}
	return nil
}

// sharesFlag collects repeated -share kind:id:bps values.
type sharesFlag struct {
	values []splits.Share
}

func (f *sharesFlag) String() string {
	parts := make([]string, len(f.values))
	for i, s := range f.values {
		parts[i] = fmt.Sprintf("%s:%d:%d", s.RecipientKind, s.RecipientID, s.Bps)
	}
	return strings.Join(parts, " ")
}

func (f *sharesFlag) Set(raw string) error {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 3 {
		return fmt.Errorf("share must be kind:id:bps, got %q", raw)
	}
	kind, err := splits.ParseRecipientKind(parts[0])
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid recipient id %q", parts[1])
	}
	bps, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid bps %q", parts[2])
	}
	f.values = append(f.values, splits.Share{RecipientKind: kind, RecipientID: id, Bps: bps})
	return nil
}
