package dto

import (
	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
)

// RegisterMerchantRequest is the request body for merchant registration.
type RegisterMerchantRequest struct {
	Name              string  `json:"name" binding:"required,min=1,max=100"`
	WalletAddress     string  `json:"wallet_address" binding:"required,wallet_address"`
	SettlementAccount string  `json:"settlement_account" binding:"omitempty,wallet_address"`
	WebhookURL        *string `json:"webhook_url,omitempty" binding:"omitempty,safe_url"`
}

// RegisterMerchantResponse is the response body for successful registration.
// The API key is returned exactly once.
type RegisterMerchantResponse struct {
	MerchantID        string  `json:"merchant_id"`
	Name              string  `json:"name"`
	WalletAddress     string  `json:"wallet_address"`
	SettlementAccount string  `json:"settlement_account"`
	APIKey            string  `json:"api_key"`
	WebhookURL        *string `json:"webhook_url,omitempty"`
}

// MerchantResponse is the response body for profile queries.
type MerchantResponse struct {
	MerchantID        string  `json:"merchant_id"`
	Name              string  `json:"name"`
	WalletAddress     string  `json:"wallet_address"`
	SettlementAccount string  `json:"settlement_account"`
	WebhookURL        *string `json:"webhook_url,omitempty"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
}

// CreatePaymentRequest is the request body for payment creation. Amount is a
// decimal string in the fiat currency, e.g. "19.99".
type CreatePaymentRequest struct {
	Amount   string `json:"amount" binding:"required,max=32"`
	Currency string `json:"currency" binding:"required,len=3,alpha"`
}

// PrepareRequest selects the token a customer intends to pay with. Token is
// a configured symbol ("USDC") or a raw mint address.
type PrepareRequest struct {
	Token string `json:"token" binding:"required,token_ref"`
}

// ExecuteRequest commits a payment to execution.
type ExecuteRequest struct {
	Token          string `json:"token" binding:"required,token_ref"`
	CustomerWallet string `json:"customer_wallet" binding:"required,wallet_address"`
}

// SubmitRequest records the on-chain transaction signature after the
// customer's wallet broadcast the payload.
type SubmitRequest struct {
	Signature string `json:"signature" binding:"required,min=32,max=128,safe_id"`
}

// ConfirmRequest finalizes a payment once the transaction is observed
// on-chain. Signature is optional; when present it overwrites the recorded one.
type ConfirmRequest struct {
	Signature string `json:"signature" binding:"omitempty,min=32,max=128,safe_id"`
}

// FailRequest marks a payment as permanently failed.
type FailRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// PaymentResponse is the wire form of a payment.
type PaymentResponse struct {
	ID                   string `json:"id"`
	MerchantID           string `json:"merchant_id"`
	Amount               string `json:"amount"` // decimal string in Currency
	Currency             string `json:"currency"`
	SettlementAmount     int64  `json:"settlement_amount,omitempty"` // settlement token base units
	SelectedToken        string `json:"selected_token,omitempty"`
	DestinationWallet    string `json:"destination_wallet"`
	CustomerWallet       string `json:"customer_wallet,omitempty"`
	TransactionSignature string `json:"transaction_signature,omitempty"`
	Status               string `json:"status"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

// QuoteResponse is the wire form of a tentative route quote.
type QuoteResponse struct {
	DirectSettlement bool   `json:"direct_settlement"`
	InputToken       string `json:"input_token"`
	OutputToken      string `json:"output_token"`
	InputAmount      int64  `json:"input_amount"`
	OutputAmount     int64  `json:"output_amount"`
}

// PrepareResponse pairs the updated payment with its quote.
type PrepareResponse struct {
	Payment PaymentResponse `json:"payment"`
	Quote   QuoteResponse   `json:"quote"`
}

// ExecuteResponse pairs the updated payment with the signable payload.
type ExecuteResponse struct {
	Payment PaymentResponse `json:"payment"`
	Payload string          `json:"payload"` // base64, signed client-side
}

// PaymentListResponse wraps a paginated payment list.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ToPaymentResponse converts a domain payment to its wire form.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                   p.ID.String(),
		MerchantID:           p.MerchantID.String(),
		Amount:               domain.FormatAmount(p.Amount, domain.CurrencyDecimals(p.Currency)),
		Currency:             p.Currency,
		SettlementAmount:     p.SettlementAmount,
		SelectedToken:        p.SelectedToken,
		DestinationWallet:    p.DestinationWallet,
		CustomerWallet:       p.CustomerWallet,
		TransactionSignature: p.TransactionSignature,
		Status:               string(p.Status),
		CreatedAt:            p.CreatedAt.Format(timeLayout),
		UpdatedAt:            p.UpdatedAt.Format(timeLayout),
	}
}

// ToQuoteResponse converts a domain quote to its wire form.
func ToQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		DirectSettlement: q.IsDirectSettlement,
		InputToken:       q.InputToken,
		OutputToken:      q.OutputToken,
		InputAmount:      q.InputAmount,
		OutputAmount:     q.OutputAmount,
	}
}

// ToMerchantResponse converts a domain merchant to its wire form. The API
// key never appears here.
func ToMerchantResponse(m *domain.Merchant) MerchantResponse {
	return MerchantResponse{
		MerchantID:        m.ID.String(),
		Name:              m.Name,
		WalletAddress:     m.WalletAddress,
		SettlementAccount: m.SettlementAccount,
		WebhookURL:        m.WebhookURL,
		Status:            string(m.Status),
		CreatedAt:         m.CreatedAt.Format(timeLayout),
	}
}

// ToPaymentListResponse builds the paginated wire form.
func ToPaymentListResponse(items []domain.Payment, total int64, params ports.PaymentListParams) PaymentListResponse {
	resp := PaymentListResponse{
		Items:    make([]PaymentResponse, 0, len(items)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, ToPaymentResponse(&items[i]))
	}
	if params.PageSize > 0 {
		resp.TotalPages = int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	}
	return resp
}
