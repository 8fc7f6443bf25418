package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/repository"
	"github.com/josh-kwaku/wallet-ledger/internal/testutil"
)

func TestJournal_ConcurrentSameReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	journal := repository.NewJournalRepository(db)
	user := testutil.SeedFundedUser(t, db, "ada", 0)

	const workers = 10
	var created, dupes atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := journal.CreatePending(context.Background(), &domain.Transaction{
				Reference:    "DATA_same",
				Kind:         domain.KindData,
				OriginUserID: &user.ID,
				Amount:       1000,
			})
			switch {
			case err == nil:
				created.Add(1)
			case assert.ErrorIs(t, err, domain.ErrDuplicateReference):
				dupes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), dupes.Load())
	assert.Equal(t, 1, testutil.CountTransactions(t, db, "DATA_same"))
}

func TestWallet_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	wallets := repository.NewWalletRepository(db)
	journal := repository.NewJournalRepository(db)
	user := testutil.SeedFundedUser(t, db, "bola", 1000)

	const workers = 10
	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()

			id, err := journal.CreatePending(ctx, &domain.Transaction{
				Reference:    "AIR_" + uuid.NewString(),
				Kind:         domain.KindAirtime,
				OriginUserID: &user.ID,
				Amount:       300,
			})
			if !assert.NoError(t, err) {
				return
			}

			tx, err := db.BeginTx(ctx, nil)
			if !assert.NoError(t, err) {
				return
			}
			defer tx.Rollback()

			_, err = wallets.AdjustBalance(ctx, tx, domain.Adjustment{
				UserID: user.ID, Currency: domain.CurrencyNGN, Delta: -300, TransactionID: id,
			})
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
				short.Add(1)
				return
			}
			if assert.NoError(t, tx.Commit()) {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, int32(7), short.Load())
	assert.Equal(t, int64(100), testutil.GetBalance(t, db, user.ID))

	w, err := wallets.Get(context.Background(), user.ID, domain.CurrencyNGN)
	require.NoError(t, err)
	moved, err := repository.NewLedgerRepository(db).SumByWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-900), moved)
}

func TestJournal_FindAndAggregate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	journal := repository.NewJournalRepository(db)
	ada := testutil.SeedFundedUser(t, db, "ada", 0)
	bola := testutil.SeedFundedUser(t, db, "bola", 0)

	seed := []domain.Transaction{
		{Reference: "T1", Kind: domain.KindTransfer, Title: "Rent share", OriginUserID: &ada.ID, DestinationUserID: &bola.ID, Amount: 5000, Fee: 10, Status: domain.StatusSuccess},
		{Reference: "T2", Kind: domain.KindAirtime, Title: "MTN airtime", OriginUserID: &ada.ID, Amount: 700, Status: domain.StatusSuccess},
		{Reference: "T3", Kind: domain.KindAirtime, Title: "Glo airtime", OriginUserID: &ada.ID, Amount: 900, Status: domain.StatusFailed},
		{Reference: "T4", Kind: domain.KindFunding, Title: "Wallet top-up", DestinationUserID: &ada.ID, Amount: 20000, Status: domain.StatusSuccess},
		{Reference: "T5", Kind: domain.KindData, Title: "Data bundle", OriginUserID: &ada.ID, Amount: 1500},
	}
	for i := range seed {
		require.NoError(t, journal.Create(ctx, db, &seed[i]))
	}

	tests := []struct {
		name      string
		filter    domain.TransactionFilter
		page      domain.Page
		wantRefs  []string
		wantTotal int
		wantNext  bool
	}{
		{
			name:      "all for ada newest first",
			filter:    domain.TransactionFilter{Participant: &ada.ID},
			page:      domain.Page{Page: 1, Limit: 2},
			wantRefs:  []string{"T5", "T4"},
			wantTotal: 5,
			wantNext:  true,
		},
		{
			name:      "last page",
			filter:    domain.TransactionFilter{Participant: &ada.ID},
			page:      domain.Page{Page: 3, Limit: 2},
			wantRefs:  []string{"T1"},
			wantTotal: 5,
		},
		{
			name:      "bola sees the incoming transfer only",
			filter:    domain.TransactionFilter{Participant: &bola.ID},
			wantRefs:  []string{"T1"},
			wantTotal: 1,
		},
		{
			name:      "kind and status",
			filter:    domain.TransactionFilter{Participant: &ada.ID, Kind: domain.KindAirtime, Status: domain.StatusSuccess},
			wantRefs:  []string{"T2"},
			wantTotal: 1,
		},
		{
			name:      "search is case insensitive",
			filter:    domain.TransactionFilter{Participant: &ada.ID, Search: "AIRTIME"},
			wantRefs:  []string{"T3", "T2"},
			wantTotal: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := journal.Find(ctx, tc.filter, tc.page)
			require.NoError(t, err)

			refs := make([]string, 0, len(got.Items))
			for _, item := range got.Items {
				refs = append(refs, item.Reference)
			}
			assert.Equal(t, tc.wantRefs, refs)
			assert.Equal(t, tc.wantTotal, got.Total)
			assert.Equal(t, tc.wantNext, got.HasNext)
		})
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	totals, err := journal.Aggregate(ctx, ada.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), totals.Income)
	assert.Equal(t, int64(5010+700), totals.Expense)
	assert.Equal(t, 3, totals.Count)
}
