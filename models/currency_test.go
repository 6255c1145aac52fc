package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/order-ingestion-service/models"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Currency
		wantErr bool
	}{
		{in: "gbp", want: models.CurrencyGBP},
		{in: "USD", want: models.CurrencyUSD},
		{in: " eur ", want: models.CurrencyEUR},
		{in: "jpy", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := models.NormalizeCurrency(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrency_FromMinorUnits(t *testing.T) {
	assert.Equal(t, "50", models.CurrencyGBP.FromMinorUnits(5000).String())
	assert.Equal(t, "12.34", models.CurrencyUSD.FromMinorUnits(1234).String())
	assert.True(t, models.CurrencyEUR.FromMinorUnits(0).IsZero())
}

func TestParseConfirmationMetadata(t *testing.T) {
	md := models.ParseConfirmationMetadata(map[string]string{
		"storeUserId":   " user-1 ",
		"customerName":  "Ada",
		"customerEmail": "ada@example.com",
	})
	assert.Equal(t, "user-1", md.StoreUserID)
	assert.Equal(t, "Ada", md.CustomerName)
	assert.Nil(t, md.PromoCodeID)

	md = models.ParseConfirmationMetadata(map[string]string{"promoCodeId": "promo_1"})
	require.NotNil(t, md.PromoCodeID)
	assert.Equal(t, "promo_1", *md.PromoCodeID)
	assert.Empty(t, md.StoreUserID)
}

func TestSKUMetadata_Valid(t *testing.T) {
	assert.True(t, models.ParseSKUMetadata(map[string]string{"itemId": "shoe-1", "size": "9"}).Valid())
	assert.False(t, models.ParseSKUMetadata(map[string]string{"itemId": "shoe-1"}).Valid())
	assert.False(t, models.ParseSKUMetadata(nil).Valid())
}
