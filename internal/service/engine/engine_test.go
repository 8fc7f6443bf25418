package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
	"github.com/josh-kwaku/wallet-ledger/internal/repository"
	"github.com/josh-kwaku/wallet-ledger/internal/testutil"
)

type fakeVTU struct {
	calls  atomic.Int32
	result *provider.Result
	err    error
}

func (f *fakeVTU) answer() (*provider.Result, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func (f *fakeVTU) SendAirtime(ctx context.Context, req provider.AirtimeRequest) (*provider.Result, error) {
	return f.answer()
}

func (f *fakeVTU) SendData(ctx context.Context, req provider.DataRequest) (*provider.Result, error) {
	return f.answer()
}

func (f *fakeVTU) PayBill(ctx context.Context, req provider.BillRequest) (*provider.Result, error) {
	return f.answer()
}

type fakePayouts struct {
	fee    int64
	feeErr error
	result *provider.Result
	err    error
	status *provider.TransferStatus
	sent   []provider.BankTransferRequest
	quotes int
}

func (f *fakePayouts) InitiateBankTransfer(ctx context.Context, req provider.BankTransferRequest) (*provider.Result, error) {
	f.sent = append(f.sent, req)
	return f.result, f.err
}

func (f *fakePayouts) GetTransferFee(ctx context.Context, amount int64) (int64, error) {
	f.quotes++
	return f.fee, f.feeErr
}

func (f *fakePayouts) VerifyTransfer(ctx context.Context, providerRef string) (*provider.TransferStatus, error) {
	if f.status == nil {
		return nil, domain.ErrProviderUnavailable
	}
	return f.status, nil
}

func setupEngine(t *testing.T, db *sqlx.DB, vtu *fakeVTU, payouts *fakePayouts) *Engine {
	t.Helper()
	if vtu == nil {
		vtu = &fakeVTU{result: &provider.Result{Success: true}}
	}
	if payouts == nil {
		payouts = &fakePayouts{result: &provider.Result{Success: true}}
	}
	return New(Deps{
		DB:                 db,
		Wallets:            repository.NewWalletRepository(db),
		Ledger:             repository.NewLedgerRepository(db),
		Journal:            repository.NewJournalRepository(db),
		Users:              repository.NewUserRepository(db),
		Proposals:          repository.NewProposalRepository(db),
		VTU:                vtu,
		Payouts:            payouts,
		DefaultTransferFee: 50,
	})
}

func airtime(actor uuid.UUID, amount int64, ref string) BillRequest {
	return BillRequest{
		ActorID:   actor,
		Kind:      domain.KindAirtime,
		Amount:    amount,
		Reference: ref,
		Details:   domain.AirtimeMetadata{Network: "mtn", Phone: "08031234567"},
	}
}

func TestPayBill_Outcomes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		vtu         *fakeVTU
		amount      int64
		wantErr     error
		wantStatus  domain.Status
		wantBalance int64
		wantDetail  bool
	}{
		{
			name:        "provider confirms",
			vtu:         &fakeVTU{result: &provider.Result{Success: true, ProviderReference: "N3-1"}},
			amount:      600,
			wantStatus:  domain.StatusSuccess,
			wantBalance: 400,
		},
		{
			name:        "provider declines",
			vtu:         &fakeVTU{result: &provider.Result{Success: false, Message: "invalid phone"}},
			amount:      600,
			wantErr:     domain.ErrProviderRejected,
			wantStatus:  domain.StatusFailed,
			wantBalance: 1000,
			wantDetail:  true,
		},
		{
			name:        "provider times out",
			vtu:         &fakeVTU{err: context.DeadlineExceeded},
			amount:      200,
			wantErr:     domain.ErrUnconfirmed,
			wantStatus:  domain.StatusPending,
			wantBalance: 800,
		},
		{
			name:        "request never sent",
			vtu:         &fakeVTU{err: domain.ErrValidation},
			amount:      200,
			wantErr:     domain.ErrValidation,
			wantStatus:  domain.StatusFailed,
			wantBalance: 1000,
			wantDetail:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user := testutil.SeedFundedUser(t, db, "bill_"+uuid.NewString()[:8], 1000)
			e := setupEngine(t, db, tc.vtu, nil)
			ref := NewReference("AIR_")

			out, err := e.PayBill(ctx, airtime(user.ID, tc.amount, ref))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				var opErr *OpError
				require.True(t, errors.As(err, &opErr))
				assert.Equal(t, ref, opErr.Reference)
			} else {
				require.NoError(t, err)
				require.NotNil(t, out)
				assert.Equal(t, tc.wantBalance, out.Balance)
			}

			assert.Equal(t, tc.wantStatus, testutil.GetStatus(t, db, ref))
			assert.Equal(t, tc.wantBalance, testutil.GetBalance(t, db, user.ID))
			assert.Equal(t, int32(1), tc.vtu.calls.Load())

			stored, err := repository.NewJournalRepository(db).GetByReference(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDetail, stored.ErrorDetail != nil)
		})
	}
}

func TestPayBill_InsufficientFundsCreatesNoEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.SeedFundedUser(t, db, "short", 500)
	vtu := &fakeVTU{result: &provider.Result{Success: true}}
	e := setupEngine(t, db, vtu, nil)

	_, err := e.PayBill(ctx, airtime(user.ID, 600, "AIR_short"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, 0, testutil.CountTransactions(t, db, "AIR_short"))
	assert.Equal(t, int64(500), testutil.GetBalance(t, db, user.ID))
	assert.Equal(t, int32(0), vtu.calls.Load())
}

func TestPayBill_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.SeedFundedUser(t, db, "validator", 1000)
	e := setupEngine(t, db, nil, nil)

	tests := []struct {
		name    string
		req     BillRequest
		wantErr error
	}{
		{name: "zero amount", req: airtime(user.ID, 0, ""), wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", req: airtime(user.ID, -5, ""), wantErr: domain.ErrInvalidAmount},
		{
			name:    "not a bill kind",
			req:     BillRequest{ActorID: user.ID, Kind: domain.KindTransfer, Amount: 100, Details: domain.TransferMetadata{}},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "details of another kind",
			req:     BillRequest{ActorID: user.ID, Kind: domain.KindCable, Amount: 100, Details: domain.BettingMetadata{}},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.PayBill(ctx, tc.req)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, user.ID))
}

func TestPayBill_ConcurrentSameReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.SeedFundedUser(t, db, "doubletap", 1000)
	vtu := &fakeVTU{result: &provider.Result{Success: true}}
	e := setupEngine(t, db, vtu, nil)

	const n = 8
	var (
		wg       sync.WaitGroup
		fresh    atomic.Int32
		replayed atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.PayBill(ctx, airtime(user.ID, 300, "AIR_same"))
			if !assert.NoError(t, err) {
				return
			}
			if out.Replayed {
				replayed.Add(1)
			} else {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load())
	assert.Equal(t, int32(n-1), replayed.Load())
	assert.Equal(t, int32(1), vtu.calls.Load())
	assert.Equal(t, 1, testutil.CountTransactions(t, db, "AIR_same"))
	assert.Equal(t, int64(700), testutil.GetBalance(t, db, user.ID))
}

func TestPayBill_ReplayOfDifferentRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	ada := testutil.SeedFundedUser(t, db, "ada", 1000)
	bola := testutil.SeedFundedUser(t, db, "bola", 1000)
	e := setupEngine(t, db, nil, nil)

	_, err := e.PayBill(ctx, airtime(ada.ID, 300, "AIR_taken"))
	require.NoError(t, err)

	_, err = e.PayBill(ctx, airtime(ada.ID, 400, "AIR_taken"))
	require.ErrorIs(t, err, domain.ErrDuplicateReference)

	_, err = e.PayBill(ctx, airtime(bola.ID, 300, "AIR_taken"))
	require.ErrorIs(t, err, domain.ErrDuplicateReference)

	assert.Equal(t, int64(700), testutil.GetBalance(t, db, ada.ID))
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, bola.ID))
}

func TestReplay_AfterBalanceSpent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	t.Run("bill", func(t *testing.T) {
		user := testutil.SeedFundedUser(t, db, "spent_bill", 300)
		vtu := &fakeVTU{result: &provider.Result{Success: true}}
		e := setupEngine(t, db, vtu, nil)

		first, err := e.PayBill(ctx, airtime(user.ID, 300, "AIR_all"))
		require.NoError(t, err)
		require.False(t, first.Replayed)
		require.Equal(t, int64(0), testutil.GetBalance(t, db, user.ID))

		again, err := e.PayBill(ctx, airtime(user.ID, 300, "AIR_all"))
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		assert.Equal(t, domain.StatusSuccess, again.Transaction.Status)
		assert.Equal(t, int32(1), vtu.calls.Load())
		assert.Equal(t, int64(0), testutil.GetBalance(t, db, user.ID))
	})

	t.Run("internal transfer", func(t *testing.T) {
		sender := testutil.SeedFundedUser(t, db, "spent_sender", 400)
		testutil.SeedFundedUser(t, db, "spent_recipient", 0)
		e := setupEngine(t, db, nil, nil)
		req := TransferRequest{ActorID: sender.ID, RecipientUsername: "spent_recipient", Amount: 400, Reference: "TRF_all"}

		_, err := e.InternalTransfer(ctx, req)
		require.NoError(t, err)

		again, err := e.InternalTransfer(ctx, req)
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		assert.Equal(t, int64(0), testutil.GetBalance(t, db, sender.ID))
	})

	t.Run("bank transfer skips the fee quote", func(t *testing.T) {
		user := testutil.SeedFundedUser(t, db, "spent_payer", 1025)
		payouts := &fakePayouts{fee: 25, result: &provider.Result{Success: true, ProviderReference: "FLW-all"}}
		e := setupEngine(t, db, nil, payouts)
		req := BankTransferRequest{ActorID: user.ID, Amount: 1000, BankCode: "058", AccountNumber: "0123456789", Reference: "BT_all"}

		_, err := e.BankTransfer(ctx, req)
		require.NoError(t, err)
		require.Equal(t, 1, payouts.quotes)

		again, err := e.BankTransfer(ctx, req)
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		assert.Equal(t, domain.StatusPending, again.Transaction.Status)
		assert.Equal(t, 1, payouts.quotes)
		assert.Len(t, payouts.sent, 1)
	})

	t.Run("different request still conflicts", func(t *testing.T) {
		user := testutil.SeedFundedUser(t, db, "spent_conflict", 300)
		e := setupEngine(t, db, nil, nil)

		_, err := e.PayBill(ctx, airtime(user.ID, 300, "AIR_conflict"))
		require.NoError(t, err)

		_, err = e.PayBill(ctx, airtime(user.ID, 200, "AIR_conflict"))
		require.ErrorIs(t, err, domain.ErrDuplicateReference)
	})
}

func TestInternalTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	e := setupEngine(t, db, nil, nil)

	t.Run("moves funds", func(t *testing.T) {
		sender := testutil.SeedFundedUser(t, db, "sender", 1000)
		recipient := testutil.SeedUser(t, db, "recipient", domain.RoleUser)

		out, err := e.InternalTransfer(ctx, TransferRequest{
			ActorID: sender.ID, RecipientUsername: "recipient", Amount: 250, Note: "lunch",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, out.Transaction.Status)
		assert.Equal(t, int64(750), out.Balance)
		assert.Equal(t, int64(750), testutil.GetBalance(t, db, sender.ID))
		assert.Equal(t, int64(250), testutil.GetBalance(t, db, recipient.ID))
		assert.Equal(t, 2, testutil.CountLedgerEntries(t, db, out.Transaction.ID))
	})

	t.Run("insufficient funds", func(t *testing.T) {
		sender := testutil.SeedFundedUser(t, db, "poor", 500)
		testutil.SeedFundedUser(t, db, "rich", 0)

		_, err := e.InternalTransfer(ctx, TransferRequest{
			ActorID: sender.ID, RecipientUsername: "rich", Amount: 600, Reference: "TRF_poor",
		})
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Equal(t, 0, testutil.CountTransactions(t, db, "TRF_poor"))
		assert.Equal(t, int64(500), testutil.GetBalance(t, db, sender.ID))
	})

	t.Run("self transfer", func(t *testing.T) {
		self := testutil.SeedFundedUser(t, db, "narcissus", 1000)
		_, err := e.InternalTransfer(ctx, TransferRequest{ActorID: self.ID, RecipientUsername: "narcissus", Amount: 10})
		require.ErrorIs(t, err, domain.ErrSelfTransfer)
		assert.Equal(t, int64(1000), testutil.GetBalance(t, db, self.ID))
	})

	t.Run("unknown recipient", func(t *testing.T) {
		sender := testutil.SeedFundedUser(t, db, "lonely", 1000)
		_, err := e.InternalTransfer(ctx, TransferRequest{ActorID: sender.ID, RecipientUsername: "nobody", Amount: 10})
		require.ErrorIs(t, err, domain.ErrRecipientNotFound)
	})
}

func TestBankTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	req := func(actor uuid.UUID, ref string) BankTransferRequest {
		return BankTransferRequest{
			ActorID: actor, Amount: 1000, BankCode: "058", AccountNumber: "0123456789",
			AccountName: "Ada Obi", Narration: "rent", Reference: ref,
		}
	}

	t.Run("accepted transfer stays pending with fee reserved", func(t *testing.T) {
		user := testutil.SeedFundedUser(t, db, "payer", 2000)
		payouts := &fakePayouts{fee: 25, result: &provider.Result{Success: true, ProviderReference: "FLW-77"}}
		e := setupEngine(t, db, nil, payouts)

		out, err := e.BankTransfer(ctx, req(user.ID, "BT_one"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, out.Transaction.Status)
		assert.Equal(t, int64(25), out.Transaction.Fee)
		assert.Equal(t, int64(975), testutil.GetBalance(t, db, user.ID))
		require.Len(t, payouts.sent, 1)
		assert.Equal(t, int64(1000), payouts.sent[0].Amount)

		stored, err := repository.NewJournalRepository(db).GetByReference(ctx, "BT_one")
		require.NoError(t, err)
		require.NotNil(t, stored.ProviderReference)
		assert.Equal(t, "FLW-77", *stored.ProviderReference)
	})

	t.Run("fee quote failure falls back to default", func(t *testing.T) {
		user := testutil.SeedFundedUser(t, db, "fallback", 2000)
		payouts := &fakePayouts{feeErr: domain.ErrProviderUnavailable, result: &provider.Result{Success: true}}
		e := setupEngine(t, db, nil, payouts)

		out, err := e.BankTransfer(ctx, req(user.ID, "BT_two"))
		require.NoError(t, err)
		assert.Equal(t, int64(50), out.Transaction.Fee)
		assert.Equal(t, int64(950), testutil.GetBalance(t, db, user.ID))
	})

	t.Run("decline refunds amount and fee", func(t *testing.T) {
		user := testutil.SeedFundedUser(t, db, "declined", 2000)
		payouts := &fakePayouts{fee: 25, result: &provider.Result{Success: false, Message: "account blocked"}}
		e := setupEngine(t, db, nil, payouts)

		_, err := e.BankTransfer(ctx, req(user.ID, "BT_three"))
		require.ErrorIs(t, err, domain.ErrProviderRejected)
		assert.Equal(t, domain.StatusFailed, testutil.GetStatus(t, db, "BT_three"))
		assert.Equal(t, int64(2000), testutil.GetBalance(t, db, user.ID))
	})
}

func TestSettle_RefundsOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.SeedFundedUser(t, db, "settler", 1000)
	e := setupEngine(t, db, &fakeVTU{err: context.DeadlineExceeded}, nil)

	_, err := e.PayBill(ctx, airtime(user.ID, 200, "AIR_slow"))
	require.ErrorIs(t, err, domain.ErrUnconfirmed)
	require.Equal(t, int64(800), testutil.GetBalance(t, db, user.ID))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Settle(ctx, "AIR_slow", domain.StatusFailed, "provider reversed")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, domain.StatusFailed, testutil.GetStatus(t, db, "AIR_slow"))
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, user.ID))

	stored, err := repository.NewJournalRepository(db).GetByReference(ctx, "AIR_slow")
	require.NoError(t, err)
	entries, err := repository.NewLedgerRepository(db).GetByTransactionID(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryTypeDebit, entries[0].EntryType)
	assert.Equal(t, domain.EntryTypeCredit, entries[1].EntryType)
	assert.Equal(t, int64(200), entries[1].Amount)

	_, err = e.Settle(ctx, "AIR_slow", domain.StatusSuccess, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, int64(1000), testutil.GetBalance(t, db, user.ID))
}

func TestResolve_BankTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		status      *provider.TransferStatus
		wantErr     error
		wantStatus  domain.Status
		wantBalance int64
	}{
		{name: "successful", status: &provider.TransferStatus{Status: provider.TransferSuccessful}, wantStatus: domain.StatusSuccess, wantBalance: 1000},
		{name: "failed", status: &provider.TransferStatus{Status: provider.TransferFailed, Message: "DISBURSE FAILED"}, wantStatus: domain.StatusFailed, wantBalance: 2000},
		{name: "still processing", status: &provider.TransferStatus{Status: "NEW"}, wantStatus: domain.StatusPending, wantBalance: 1000},
		{name: "provider unreachable", wantErr: domain.ErrUnconfirmed, wantStatus: domain.StatusPending, wantBalance: 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user := testutil.SeedFundedUser(t, db, "resolve_"+uuid.NewString()[:8], 2000)
			payouts := &fakePayouts{result: &provider.Result{Success: true, ProviderReference: "FLW-" + uuid.NewString()[:6]}}
			e := setupEngine(t, db, nil, payouts)
			ref := NewReference("BT_")

			_, err := e.BankTransfer(ctx, BankTransferRequest{
				ActorID: user.ID, Amount: 1000, BankCode: "058", AccountNumber: "0123456789", Reference: ref,
			})
			require.NoError(t, err)

			payouts.status = tc.status
			_, err = e.Resolve(ctx, ref, user.ID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantStatus, testutil.GetStatus(t, db, ref))
			assert.Equal(t, tc.wantBalance, testutil.GetBalance(t, db, user.ID))
		})
	}
}

func TestResolveStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.SeedFundedUser(t, db, "stale", 5000)
	payouts := &fakePayouts{result: &provider.Result{Success: true, ProviderReference: "FLW-stale"}}
	e := setupEngine(t, db, nil, payouts)
	req := func(ref string) BankTransferRequest {
		return BankTransferRequest{ActorID: user.ID, Amount: 1000, BankCode: "058", AccountNumber: "0123456789", Reference: ref}
	}

	_, err := e.BankTransfer(ctx, req("BT_stale"))
	require.NoError(t, err)
	_, err = e.BankTransfer(ctx, req("BT_fresh"))
	require.NoError(t, err)

	payouts.result, payouts.err = nil, domain.ErrProviderUnavailable
	_, err = e.BankTransfer(ctx, req("BT_unsent"))
	require.ErrorIs(t, err, domain.ErrUnconfirmed)

	_, err = db.Exec(`UPDATE transactions SET created_at = now() - interval '1 hour' WHERE reference IN ('BT_stale', 'BT_unsent')`)
	require.NoError(t, err)

	payouts.status = &provider.TransferStatus{Status: provider.TransferFailed, Message: "beneficiary bank offline"}
	settled, err := e.ResolveStale(ctx, time.Now().Add(-10*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	assert.Equal(t, domain.StatusFailed, testutil.GetStatus(t, db, "BT_stale"))
	assert.Equal(t, domain.StatusPending, testutil.GetStatus(t, db, "BT_fresh"))
	assert.Equal(t, domain.StatusPending, testutil.GetStatus(t, db, "BT_unsent"))
	assert.Equal(t, int64(3000), testutil.GetBalance(t, db, user.ID))
}

func TestInternalTransfer_OppositeDirections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ada := testutil.SeedUser(t, db, "ada_two_way", domain.RoleUser)
	bola := testutil.SeedUser(t, db, "bola_two_way", domain.RoleUser)
	adaWallet := testutil.SeedWallet(t, db, ada.ID, 5000)
	bolaWallet := testutil.SeedWallet(t, db, bola.ID, 5000)
	e := setupEngine(t, db, nil, nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := TransferRequest{ActorID: ada.ID, RecipientUsername: bola.Username, Amount: 100}
			if i%2 == 1 {
				req = TransferRequest{ActorID: bola.ID, RecipientUsername: ada.Username, Amount: 70}
			}
			_, err := e.InternalTransfer(ctx, req)
			assert.NoError(t, err)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("opposite-direction transfers did not finish")
	}

	// Ten transfers each way: ada sends 1000 and receives 700.
	assert.Equal(t, int64(4700), testutil.GetBalance(t, db, ada.ID))
	assert.Equal(t, int64(5300), testutil.GetBalance(t, db, bola.ID))

	ledger := repository.NewLedgerRepository(db)
	for _, w := range []*domain.Wallet{adaWallet, bolaWallet} {
		moved, err := ledger.SumByWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, testutil.GetBalance(t, db, w.UserID), w.Balance+moved)
	}
}

func TestOutcome_HidesOtherUsersEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	owner := testutil.SeedFundedUser(t, db, "owner", 1000)
	stranger := testutil.SeedFundedUser(t, db, "stranger", 0)
	e := setupEngine(t, db, nil, nil)

	_, err := e.PayBill(ctx, airtime(owner.ID, 100, "AIR_mine"))
	require.NoError(t, err)

	got, err := e.Outcome(ctx, "AIR_mine", owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, got.Status)

	_, err = e.Outcome(ctx, "AIR_mine", stranger.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGiftCard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	e := setupEngine(t, db, nil, nil)

	submit := func(t *testing.T, seller uuid.UUID, rate int64) *domain.Proposal {
		t.Helper()
		p, err := e.SubmitGiftCard(ctx, SubmitGiftCardRequest{
			ActorID: seller, Name: "Steam", Code: "STEAM-" + uuid.NewString()[:6], CardAmount: 5000, Rate: rate,
		})
		require.NoError(t, err)
		return p
	}

	t.Run("approval pays the submitter once", func(t *testing.T) {
		seller := testutil.SeedFundedUser(t, db, "seller", 0)
		verifier := testutil.SeedUser(t, db, "verifier", domain.RoleVerifier)
		testutil.SeedWallet(t, db, verifier.ID, 10000)
		p := submit(t, seller.ID, 4000)

		out, err := e.ApproveGiftCard(ctx, p.ID, verifier.ID)
		require.NoError(t, err)
		assert.Equal(t, "GIFT-"+p.ID.String(), out.Transaction.Reference)
		assert.Equal(t, int64(6000), out.Balance)
		assert.Equal(t, int64(4000), testutil.GetBalance(t, db, seller.ID))

		_, err = e.ApproveGiftCard(ctx, p.ID, verifier.ID)
		require.ErrorIs(t, err, domain.ErrProposalDecided)
		assert.Equal(t, int64(4000), testutil.GetBalance(t, db, seller.ID))
		assert.Equal(t, int64(6000), testutil.GetBalance(t, db, verifier.ID))
	})

	t.Run("verifier short of funds leaves proposal pending", func(t *testing.T) {
		seller := testutil.SeedFundedUser(t, db, "seller2", 0)
		verifier := testutil.SeedUser(t, db, "verifier2", domain.RoleVerifier)
		testutil.SeedWallet(t, db, verifier.ID, 100)
		p := submit(t, seller.ID, 4000)

		_, err := e.ApproveGiftCard(ctx, p.ID, verifier.ID)
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)

		got, err := repository.NewProposalRepository(db).GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusPending, got.Status)
		assert.Equal(t, 0, testutil.CountTransactions(t, db, "GIFT-"+p.ID.String()))
	})

	t.Run("reject then approve", func(t *testing.T) {
		seller := testutil.SeedFundedUser(t, db, "seller3", 0)
		verifier := testutil.SeedUser(t, db, "verifier3", domain.RoleVerifier)
		testutil.SeedWallet(t, db, verifier.ID, 10000)
		p := submit(t, seller.ID, 1000)

		rejected, err := e.RejectGiftCard(ctx, p.ID, verifier.ID, "code already redeemed")
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusRejected, rejected.Status)

		_, err = e.ApproveGiftCard(ctx, p.ID, verifier.ID)
		require.ErrorIs(t, err, domain.ErrProposalDecided)
		assert.Equal(t, int64(0), testutil.GetBalance(t, db, seller.ID))
	})

	t.Run("own proposal", func(t *testing.T) {
		verifier := testutil.SeedUser(t, db, "verifier4", domain.RoleVerifier)
		testutil.SeedWallet(t, db, verifier.ID, 10000)
		p := submit(t, verifier.ID, 1000)

		_, err := e.ApproveGiftCard(ctx, p.ID, verifier.ID)
		require.ErrorIs(t, err, domain.ErrSelfTransfer)
	})
}

func TestAdjust(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	admin := testutil.SeedUser(t, db, "admin", domain.RoleAdmin)
	user := testutil.SeedFundedUser(t, db, "adjusted", 1000)
	e := setupEngine(t, db, nil, nil)

	out, err := e.Adjust(ctx, AdjustmentRequest{ActorID: admin.ID, UserID: user.ID, Delta: 500, Reason: "goodwill", Reference: "ADJ_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), out.Balance)

	again, err := e.Adjust(ctx, AdjustmentRequest{ActorID: admin.ID, UserID: user.ID, Delta: 500, Reason: "goodwill", Reference: "ADJ_1"})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, int64(1500), testutil.GetBalance(t, db, user.ID))

	_, err = e.Adjust(ctx, AdjustmentRequest{ActorID: admin.ID, UserID: user.ID, Delta: -500, Reason: "goodwill", Reference: "ADJ_1"})
	require.ErrorIs(t, err, domain.ErrDuplicateReference)
	assert.Equal(t, int64(1500), testutil.GetBalance(t, db, user.ID))

	_, err = e.Adjust(ctx, AdjustmentRequest{ActorID: admin.ID, UserID: user.ID, Delta: -5000, Reason: "clawback", Reference: "ADJ_2"})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 0, testutil.CountTransactions(t, db, "ADJ_2"))

	_, err = e.Adjust(ctx, AdjustmentRequest{ActorID: admin.ID, UserID: user.ID, Delta: 0, Reason: "noop"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestFund_Replay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "depositor", domain.RoleUser)
	e := setupEngine(t, db, nil, nil)

	req := FundingRequest{
		UserID: user.ID, Amount: 250000, Reference: "FLW-FUND-9001",
		Details: domain.FundingMetadata{Channel: "virtual_account", ProviderTxRef: "VA-1"},
	}
	for i := 0; i < 3; i++ {
		out, err := e.Fund(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, i > 0, out.Replayed)
	}
	assert.Equal(t, int64(250000), testutil.GetBalance(t, db, user.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, "FLW-FUND-9001"))
}
