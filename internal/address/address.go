// Package address recognises Solana and EVM token addresses in user input.
package address

import (
	"regexp"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/bobmcallan/bagboard/internal/models"
)

// Address is a validated token address with its chain.
type Address struct {
	Value string `json:"address"`
	Chain string `json:"chain"`
}

var (
	evmExact     = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	evmInText    = regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`)
	base58InText = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)
)

// Classify returns the first token address found in input. A bare address
// is tried first, then free text (URLs, pasted messages) is scanned.
func Classify(input string) (Address, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Address{}, false
	}

	if IsSolana(s) {
		return Address{Value: s, Chain: models.ChainSolana}, true
	}
	if IsEVM(s) {
		return Address{Value: strings.ToLower(s), Chain: models.ChainBSC}, true
	}

	for _, candidate := range evmInText.FindAllString(s, -1) {
		if IsEVM(candidate) {
			return Address{Value: strings.ToLower(candidate), Chain: models.ChainBSC}, true
		}
	}
	for _, candidate := range base58InText.FindAllString(s, -1) {
		if IsSolana(candidate) {
			return Address{Value: candidate, Chain: models.ChainSolana}, true
		}
	}
	return Address{}, false
}

// IsSolana reports whether s is a base58 string decoding to a 32-byte key.
func IsSolana(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// IsEVM reports whether s is a 0x-prefixed 20-byte hex address.
func IsEVM(s string) bool {
	return evmExact.MatchString(s)
}

// ChainOf returns the chain of an already-valid address, or "" if invalid.
func ChainOf(s string) string {
	switch {
	case IsSolana(s):
		return models.ChainSolana
	case IsEVM(s):
		return models.ChainBSC
	}
	return ""
}

// Normalize lowercases EVM addresses and leaves Solana addresses verbatim.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if IsEVM(s) {
		return strings.ToLower(s)
	}
	return s
}

// IsPumpMint reports whether a Solana mint was launched on pump.fun.
func IsPumpMint(s string) bool {
	return IsSolana(s) && strings.HasSuffix(s, "pump")
}
