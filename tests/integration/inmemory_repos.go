package integration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.merchants {
		if existing.APIKey == m.APIKey {
			return fmt.Errorf("api key already exists")
		}
	}
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMerchantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.APIKey == apiKey {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; ok {
		return fmt.Errorf("payment already exists")
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return fmt.Errorf("payment not found")
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.Payment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Payment
	for _, p := range r.payments {
		if p.MerchantID != params.MerchantID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	offset := (params.Page - 1) * params.PageSize
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *inMemoryPaymentRepo) CountByStatus(ctx context.Context, merchantID uuid.UUID) (map[domain.PaymentStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.PaymentStatus]int64)
	for _, p := range r.payments {
		if p.MerchantID == merchantID {
			counts[p.Status]++
		}
	}
	return counts, nil
}

// --- Fake Quote Provider ---

// fakeQuoteProvider prices every pair at a fixed 2:1 ratio and builds a
// decodable base64 payload, standing in for the upstream swap API.
type fakeQuoteProvider struct{}

func (fakeQuoteProvider) GetQuote(ctx context.Context, inputMint, outputMint string, exactOutputAmount int64, slippageBps int) (*domain.Quote, error) {
	return &domain.Quote{
		InputToken:   inputMint,
		OutputToken:  outputMint,
		InputAmount:  exactOutputAmount * 2,
		OutputAmount: exactOutputAmount,
		Route:        []byte(`{"routePlan":[]}`),
	}, nil
}

func (fakeQuoteProvider) BuildSettlementPayload(ctx context.Context, quote *domain.Quote, payerWallet, payeeAccount string) (string, error) {
	raw, err := json.Marshal(map[string]any{
		"payer":  payerWallet,
		"payee":  payeeAccount,
		"input":  quote.InputAmount,
		"output": quote.OutputAmount,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
