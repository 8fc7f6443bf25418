package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestWalletRepository_AdjustBalance(t *testing.T) {
	userID := uuid.New()
	walletID := uuid.New()
	txnID := uuid.New()

	tests := []struct {
		name       string
		delta      int64
		setup      func(mock sqlmock.Sqlmock)
		wantErr    error
		wantType   domain.EntryType
		wantAmount int64
		wantBefore int64
		wantAfter  int64
	}{
		{
			name:  "debit within balance",
			delta: -600,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE wallets SET balance = balance \+ \$1`).
					WithArgs(int64(-600), sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).AddRow(walletID.String(), int64(400)))
				mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantType:   domain.EntryTypeDebit,
			wantAmount: 600,
			wantBefore: 1000,
			wantAfter:  400,
		},
		{
			name:  "credit",
			delta: 250,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE wallets SET balance = balance \+ \$1`).
					WithArgs(int64(250), sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).AddRow(walletID.String(), int64(250)))
				mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantType:   domain.EntryTypeCredit,
			wantAmount: 250,
			wantBefore: 0,
			wantAfter:  250,
		},
		{
			name:  "floor check fails on existing wallet",
			delta: -600,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE wallets SET balance = balance \+ \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))
				mock.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:  "missing wallet",
			delta: 100,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE wallets SET balance = balance \+ \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))
				mock.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "zero delta",
			delta:   0,
			setup:   func(sqlmock.Sqlmock) {},
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewWalletRepository(db)
			ctx := context.Background()

			mock.ExpectBegin()
			tc.setup(mock)
			mock.ExpectRollback()

			tx, err := db.BeginTx(ctx, nil)
			require.NoError(t, err)

			entry, err := repo.AdjustBalance(ctx, tx, domain.Adjustment{
				UserID:        userID,
				Currency:      domain.CurrencyNGN,
				Delta:         tc.delta,
				TransactionID: txnID,
			})
			require.NoError(t, tx.Rollback())

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, entry)
			} else {
				require.NoError(t, err)
				assert.Equal(t, walletID, entry.WalletID)
				assert.Equal(t, txnID, entry.TransactionID)
				assert.Equal(t, tc.wantType, entry.EntryType)
				assert.Equal(t, tc.wantAmount, entry.Amount)
				assert.Equal(t, tc.wantBefore, entry.BalanceBefore)
				assert.Equal(t, tc.wantAfter, entry.BalanceAfter)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWalletRepository_ApplyAll_LocksInUserOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	low := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	high := uuid.MustParse("ffffffff-0000-0000-0000-00000000000b")

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE wallets`).
		WithArgs(int64(500), low.String(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).AddRow(uuid.NewString(), int64(500)))
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE wallets`).
		WithArgs(int64(-500), high.String(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).AddRow(uuid.NewString(), int64(0)))
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	entries, err := repo.ApplyAll(ctx, tx,
		domain.Adjustment{UserID: high, Currency: domain.CurrencyNGN, Delta: -500},
		domain.Adjustment{UserID: low, Currency: domain.CurrencyNGN, Delta: 500},
	)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Len(t, entries, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
