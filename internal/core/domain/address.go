package domain

import "regexp"

// walletAddressRe matches base58-encoded 32-byte public keys as rendered by
// Solana-style chains (no 0, O, I, l).
var walletAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// IsWalletAddress reports whether s looks like a valid wallet address.
func IsWalletAddress(s string) bool {
	return walletAddressRe.MatchString(s)
}
