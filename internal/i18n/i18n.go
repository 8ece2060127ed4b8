// Package i18n negotiates the response locale and formats money for it.
package i18n

import (
	"context"
	"strings"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when the request does not ask for a supported language
const DefaultLocale = domain.LocaleES

// DefaultCurrency is the currency of every quotation
const DefaultCurrency = "MXN"

var (
	supported = []language.Tag{language.Spanish, language.English}
	matcher   = language.NewMatcher(supported)
)

type contextKey struct{}

// Negotiate picks the locale from an explicit ?lang value first, then Accept-Language.
// Anything that does not resolve to English falls back to Spanish.
func Negotiate(queryLang, acceptLanguage string) domain.Locale {
	if queryLang = strings.TrimSpace(queryLang); queryLang != "" {
		if loc, ok := parse(queryLang); ok {
			return loc
		}
	}

	if strings.TrimSpace(acceptLanguage) == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	return fromTag(supported[idx])
}

func parse(s string) (domain.Locale, bool) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return fromTag(supported[idx]), true
}

func fromTag(tag language.Tag) domain.Locale {
	if tag == language.English {
		return domain.LocaleEN
	}
	return domain.LocaleES
}

// Tag returns the language tag of a locale
func Tag(loc domain.Locale) language.Tag {
	if loc == domain.LocaleEN {
		return language.English
	}
	return language.Spanish
}

// WithLocale stores the negotiated locale in the context
func WithLocale(ctx context.Context, loc domain.Locale) context.Context {
	return context.WithValue(ctx, contextKey{}, loc)
}

// FromContext returns the negotiated locale, or the default
func FromContext(ctx context.Context) domain.Locale {
	if loc, ok := ctx.Value(contextKey{}).(domain.Locale); ok {
		return loc
	}
	return DefaultLocale
}

// FormatMoney renders an amount with two decimals, the locale's separators and the ISO code,
// e.g. "$1,234.50 MXN" in English.
func FormatMoney(loc domain.Locale, amount decimal.Decimal, code string) string {
	if code == "" {
		code = DefaultCurrency
	}
	symbol := "$"
	if unit, err := currency.ParseISO(code); err == nil {
		symbol = narrowSymbol(unit)
	}

	f := amount.Round(2).InexactFloat64()
	p := message.NewPrinter(Tag(loc))
	return p.Sprintf("%s%v %s", symbol, number.Decimal(f, number.Scale(2)), code)
}

// narrowSymbol returns the narrow currency symbol ("$" for MXN and USD)
func narrowSymbol(unit currency.Unit) string {
	s := message.NewPrinter(language.English).Sprint(currency.NarrowSymbol(unit))
	if s == "" {
		return "$"
	}
	return s
}
