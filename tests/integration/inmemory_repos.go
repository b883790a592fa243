package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Transactor ---

// memTransactor serializes transactions behind one mutex, giving the same
// isolation the row locks provide in PostgreSQL.
type memTransactor struct {
	mu sync.Mutex
}

func newMemTransactor() *memTransactor {
	return &memTransactor{}
}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &memTx{}
	tx.release = t.mu.Unlock
	return tx, nil
}

type memTx struct {
	pgx.Tx
	release func()
	once    sync.Once
}

func (t *memTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

// --- Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by user ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.wallets[w.UserID]; exists {
		return nil
	}
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, paidCents, bonusCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.ID == walletID {
			w.PaidCents = paidCents
			w.BonusCents = bonusCents
			w.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("wallet not found: %s", walletID)
}

// --- Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]domain.LedgerEntry // keyed by wallet ID
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{entries: make(map[uuid.UUID][]domain.LedgerEntry)}
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.WalletID] = append(r.entries[e.WalletID], *e)
	return nil
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LedgerEntry, len(r.entries[walletID]))
	copy(out, r.entries[walletID])
	return out, nil
}

func (r *inMemoryLedgerRepo) SumDeltas(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var paid, bonus int64
	for _, e := range r.entries[walletID] {
		paid += e.PaidDelta
		bonus += e.BonusDelta
	}
	return paid, bonus, nil
}

// --- Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func copyPayment(p *domain.Payment) *domain.Payment {
	cp := *p
	cp.Metadata = p.Metadata.Merge(nil)
	return &cp
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	return copyPayment(p), nil
}

func (r *inMemoryPaymentRepo) GetByProviderRef(ctx context.Context, provider, providerRef string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.Provider == provider && p.ProviderRef == providerRef {
			return copyPayment(p), nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryPaymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, metadata domain.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found: %s", id)
	}
	p.Status = status
	p.Metadata = metadata.Merge(nil)
	return nil
}

func (r *inMemoryPaymentRepo) ListPending(ctx context.Context, since time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentPending && p.CreatedAt.After(since) {
			out = append(out, *copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryPaymentRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Earning Repo ---

type inMemoryEarningRepo struct {
	mu      sync.RWMutex
	records []domain.EarningRecord
}

func newInMemoryEarningRepo() *inMemoryEarningRepo {
	return &inMemoryEarningRepo{}
}

func (r *inMemoryEarningRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.EarningRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *inMemoryEarningRepo) ExistsByOrigin(ctx context.Context, tx pgx.Tx, origin domain.Origin) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.OriginType == origin.Type && rec.OriginID == origin.ID {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryEarningRepo) ListByBeneficiary(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) ([]domain.EarningRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.EarningRecord
	for _, rec := range r.records {
		if rec.BeneficiaryType == bt && rec.BeneficiaryID == id {
			out = append(out, rec)
		}
	}
	return out, nil
}

// --- Creator Repo ---

type inMemoryCreatorRepo struct {
	mu       sync.RWMutex
	creators map[uuid.UUID]*domain.Creator
	agencies map[uuid.UUID]*domain.Agency
	chatters map[uuid.UUID]*domain.Chatter
	personas map[uuid.UUID]*domain.AIPersona
}

func newInMemoryCreatorRepo() *inMemoryCreatorRepo {
	return &inMemoryCreatorRepo{
		creators: make(map[uuid.UUID]*domain.Creator),
		agencies: make(map[uuid.UUID]*domain.Agency),
		chatters: make(map[uuid.UUID]*domain.Chatter),
		personas: make(map[uuid.UUID]*domain.AIPersona),
	}
}

func (r *inMemoryCreatorRepo) addCreator(c domain.Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[c.ID] = &c
}

func (r *inMemoryCreatorRepo) addAgency(a domain.Agency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agencies[a.ID] = &a
}

func (r *inMemoryCreatorRepo) addChatter(c domain.Chatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatters[c.ID] = &c
}

func (r *inMemoryCreatorRepo) GetBySlug(ctx context.Context, slug string) (*domain.Creator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.creators {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryCreatorRepo) GetCreator(ctx context.Context, id uuid.UUID) (*domain.Creator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creators[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryCreatorRepo) GetAgency(ctx context.Context, id uuid.UUID) (*domain.Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agencies[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryCreatorRepo) GetChatter(ctx context.Context, id uuid.UUID) (*domain.Chatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chatters[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryCreatorRepo) GetPersona(ctx context.Context, id uuid.UUID) (*domain.AIPersona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryCreatorRepo) AddPending(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, deltaCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch bt {
	case domain.BeneficiaryCreator:
		if c, ok := r.creators[id]; ok {
			c.PendingCents += deltaCents
			return nil
		}
	case domain.BeneficiaryAgency:
		if a, ok := r.agencies[id]; ok {
			a.PendingCents += deltaCents
			return nil
		}
	case domain.BeneficiaryChatter:
		if c, ok := r.chatters[id]; ok {
			c.PendingCents += deltaCents
			return nil
		}
	}
	return fmt.Errorf("beneficiary not found: %s %s", bt, id)
}

func (r *inMemoryCreatorRepo) GetPendingForUpdate(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch bt {
	case domain.BeneficiaryCreator:
		if c, ok := r.creators[id]; ok {
			return c.PendingCents, nil
		}
	case domain.BeneficiaryAgency:
		if a, ok := r.agencies[id]; ok {
			return a.PendingCents, nil
		}
	case domain.BeneficiaryChatter:
		if c, ok := r.chatters[id]; ok {
			return c.PendingCents, nil
		}
	}
	return 0, fmt.Errorf("beneficiary not found: %s %s", bt, id)
}

func (r *inMemoryCreatorRepo) UpdatePayoutWallet(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, wallet string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch bt {
	case domain.BeneficiaryCreator:
		if c, ok := r.creators[id]; ok {
			c.PayoutWallet = wallet
			return nil
		}
	case domain.BeneficiaryAgency:
		if a, ok := r.agencies[id]; ok {
			a.PayoutWallet = wallet
			return nil
		}
	case domain.BeneficiaryChatter:
		if c, ok := r.chatters[id]; ok {
			c.PayoutWallet = wallet
			return nil
		}
	}
	return fmt.Errorf("beneficiary not found: %s %s", bt, id)
}

// --- Payout Repo ---

type inMemoryPayoutRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.PayoutRequest
}

func newInMemoryPayoutRepo() *inMemoryPayoutRepo {
	return &inMemoryPayoutRepo{requests: make(map[uuid.UUID]*domain.PayoutRequest)}
}

func (r *inMemoryPayoutRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *inMemoryPayoutRepo) HasPending(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.requests {
		if req.BeneficiaryType == bt && req.BeneficiaryID == id && req.Status == domain.PayoutPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryPayoutRepo) GetLatestByBeneficiary(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.PayoutRequest
	for _, req := range r.requests {
		if req.BeneficiaryType != bt || req.BeneficiaryID != id {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *inMemoryPayoutRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, paidAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return fmt.Errorf("payout request not found: %s", id)
	}
	if req.Status != domain.PayoutPending {
		return fmt.Errorf("payout request not pending: %s", id)
	}
	req.Status = status
	req.PaidAt = paidAt
	return nil
}

// --- Unlock Repo ---

type inMemoryUnlockRepo struct {
	mu       sync.RWMutex
	unlocked map[string]bool
}

func newInMemoryUnlockRepo() *inMemoryUnlockRepo {
	return &inMemoryUnlockRepo{unlocked: make(map[string]bool)}
}

func unlockKey(userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) string {
	return fmt.Sprintf("%s|%s|%s", userID, refType, refID)
}

func (r *inMemoryUnlockRepo) MarkUnlocked(ctx context.Context, tx pgx.Tx, userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlocked[unlockKey(userID, refType, refID)] = true
	return nil
}

func (r *inMemoryUnlockRepo) IsUnlocked(ctx context.Context, userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unlocked[unlockKey(userID, refType, refID)], nil
}

// --- Subscription Repo ---

type inMemorySubscriptionRepo struct {
	mu      sync.RWMutex
	expires map[string]time.Time // "userID|creatorID" -> expiry
}

func newInMemorySubscriptionRepo() *inMemorySubscriptionRepo {
	return &inMemorySubscriptionRepo{expires: make(map[string]time.Time)}
}

func (r *inMemorySubscriptionRepo) CreateOrRenew(ctx context.Context, tx pgx.Tx, userID, creatorID uuid.UUID, period time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s|%s", userID, creatorID)
	base := time.Now().UTC()
	if cur, ok := r.expires[key]; ok && cur.After(base) {
		base = cur
	}
	r.expires[key] = base.Add(period)
	return nil
}

// --- Fake Payment Provider ---

// fakeProvider is a controllable in-process payment rail. Checkout mints a
// reference and a nonce; the test flips the raw status via setStatus and
// delivers callbacks signed with the nonce.
type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	statuses map[string]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{statuses: make(map[string]string)}
}

func (f *fakeProvider) setStatus(ref, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[ref] = status
}

func (f *fakeProvider) Name() string { return "fakepay" }

func (f *fakeProvider) CreateCheckout(ctx context.Context, p *domain.Payment) (*ports.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("fp-%d", f.seq)
	f.statuses[ref] = "created"
	return &ports.CheckoutResult{
		ProviderRef: ref,
		Nonce:       uuid.NewString(),
		PayURL:      "https://pay.fakepay.test/" + ref,
	}, nil
}

type fakeCallbackBody struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
	Token  string `json:"token"`
}

func (f *fakeProvider) ParseCallback(header http.Header, body []byte) (*ports.ProviderCallback, error) {
	var cb fakeCallbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, apperror.Validation("invalid callback payload")
	}
	return &ports.ProviderCallback{
		ProviderRef: cb.Ref,
		RawStatus:   cb.Status,
		Token:       cb.Token,
		Body:        body,
		Header:      header,
	}, nil
}

func (f *fakeProvider) VerifyCallback(cb *ports.ProviderCallback, p *domain.Payment) error {
	if cb.Token == "" || cb.Token != p.Metadata[domain.MetaCheckoutNonce] {
		return apperror.ErrProviderVerificationFailed()
	}
	return nil
}

func (f *fakeProvider) GetStatus(ctx context.Context, providerRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[providerRef]
	if !ok {
		return "", fmt.Errorf("unknown reference: %s", providerRef)
	}
	return status, nil
}

func (f *fakeProvider) MapStatus(raw string) domain.PaymentStatus {
	switch raw {
	case "paid":
		return domain.PaymentCompleted
	case "failed", "canceled":
		return domain.PaymentFailed
	case "expired":
		return domain.PaymentExpired
	case "partially_paid":
		return domain.PaymentPartiallyPaid
	default:
		return domain.PaymentPending
	}
}
