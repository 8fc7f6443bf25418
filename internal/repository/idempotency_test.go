package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepository_Get(t *testing.T) {
	userID := uuid.New()
	stored := IdempotencyCacheEntry{
		Key:          "k1",
		UserID:       userID,
		RequestHash:  "abc",
		StatusCode:   201,
		ResponseBody: []byte(`{"reference":"AIR_1"}`),
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		want    *IdempotencyCacheEntry
		wantErr bool
	}{
		{
			name: "hit",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("idem:" + userID.String() + ":k1").SetVal(string(raw))
			},
			want: &stored,
		},
		{
			name: "miss",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("idem:" + userID.String() + ":k1").RedisNil()
			},
		},
		{
			name: "redis down",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("idem:" + userID.String() + ":k1").SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "corrupt value",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("idem:" + userID.String() + ":k1").SetVal("{not json")
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rdb, mock := redismock.NewClientMock()
			tc.setup(mock)
			repo := NewIdempotencyRepository(rdb, time.Hour)

			got, err := repo.Get(context.Background(), "k1", userID)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdempotencyRepository_Set_FirstWriteWins(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewIdempotencyRepository(rdb, 24*time.Hour)

	entry := &IdempotencyCacheEntry{
		Key:          "k2",
		UserID:       uuid.New(),
		RequestHash:  "def",
		StatusCode:   200,
		ResponseBody: []byte(`{}`),
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectSetNX(idempotencyKey(entry.Key, entry.UserID), raw, 24*time.Hour).SetVal(false)

	require.NoError(t, repo.Set(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
