package provider

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

func TestToMinor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "whole naira", in: "1500", want: 150000},
		{name: "kobo", in: "10.75", want: 1075},
		{name: "one kobo", in: "0.01", want: 1},
		{name: "sub-kobo", in: "10.755", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToMinor(decimal.RequireFromString(tc.in))
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWireAmount(t *testing.T) {
	assert.Equal(t, "1500.50", string(wireAmount(150050)))
	assert.Equal(t, "0.05", string(wireAmount(5)))
	assert.Equal(t, "600.00", ToMajor(60000).StringFixed(2))
}
