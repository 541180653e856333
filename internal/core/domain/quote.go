package domain

// Quote is the priced route for one execution attempt. It is a value
// object scoped to a single prepare/execute call and is never cached across
// requests: prices are time-sensitive.
type Quote struct {
	// IsDirectSettlement is true when the customer pays in the settlement
	// token itself and no pricing step occurred.
	IsDirectSettlement bool `json:"is_direct_settlement"`

	// InputToken and OutputToken are mint addresses.
	InputToken  string `json:"input_token"`
	OutputToken string `json:"output_token"`

	// InputAmount is the required input in the input token's smallest unit.
	// For a direct settlement it equals OutputAmount.
	InputAmount int64 `json:"input_amount"`

	// OutputAmount is the exact settlement amount the quote was solved for
	// (fixed-output pricing).
	OutputAmount int64 `json:"output_amount"`

	// Route is the provider's opaque route descriptor, echoed back when
	// asking it to build the settlement payload.
	Route []byte `json:"-"`
}
