package i18n

import (
	"context"
	"strings"
	"testing"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		accept string
		want   domain.Locale
	}{
		{"default when nothing given", "", "", domain.LocaleES},
		{"query en", "en", "", domain.LocaleEN},
		{"query wins over header", "es", "en-US,en;q=0.9", domain.LocaleES},
		{"header english variant", "", "en-GB,en;q=0.8", domain.LocaleEN},
		{"header mexican spanish", "", "es-MX", domain.LocaleES},
		{"unsupported header falls back", "", "de-DE", domain.LocaleES},
		{"garbage query falls through to header", "??", "en", domain.LocaleEN},
		{"garbage header", "", ";;;", domain.LocaleES},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.query, tt.accept))
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, DefaultLocale, FromContext(context.Background()))

	ctx := WithLocale(context.Background(), domain.LocaleEN)
	assert.Equal(t, domain.LocaleEN, FromContext(ctx))
}

func TestFormatMoney(t *testing.T) {
	en := FormatMoney(domain.LocaleEN, decimal.RequireFromString("1234.5"), "MXN")
	assert.Contains(t, en, "1,234.50")
	assert.True(t, strings.HasSuffix(en, " MXN"))

	es := FormatMoney(domain.LocaleES, decimal.RequireFromString("580"), "")
	assert.Contains(t, es, "580,00")
	assert.True(t, strings.HasSuffix(es, " MXN"))
}
