package domain

import "strings"

// Token identifies a supported payment token by mint address.
type Token struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

// TokenRegistry resolves customer-supplied token identifiers (symbol or
// mint) to supported tokens and knows the fixed settlement token.
type TokenRegistry struct {
	settlement Token
	bySymbol   map[string]Token
	byMint     map[string]Token
}

// NewTokenRegistry builds a registry from the settlement token and the set
// of accepted payment tokens. The settlement token is always accepted.
func NewTokenRegistry(settlement Token, accepted []Token) *TokenRegistry {
	r := &TokenRegistry{
		settlement: settlement,
		bySymbol:   make(map[string]Token),
		byMint:     make(map[string]Token),
	}
	r.add(settlement)
	for _, t := range accepted {
		r.add(t)
	}
	return r
}

func (r *TokenRegistry) add(t Token) {
	r.bySymbol[strings.ToUpper(t.Symbol)] = t
	r.byMint[t.Mint] = t
}

// Resolve looks a token up by symbol (case-insensitive) or mint address.
func (r *TokenRegistry) Resolve(identifier string) (Token, bool) {
	if t, ok := r.byMint[identifier]; ok {
		return t, true
	}
	t, ok := r.bySymbol[strings.ToUpper(identifier)]
	return t, ok
}

// Settlement returns the fixed settlement token.
func (r *TokenRegistry) Settlement() Token {
	return r.settlement
}

// IsSettlement reports whether t is the settlement token itself, i.e. the
// payment can take the direct route with no pricing step.
func (r *TokenRegistry) IsSettlement(t Token) bool {
	return t.Mint == r.settlement.Mint
}
