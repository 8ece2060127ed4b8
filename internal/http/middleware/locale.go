package middleware

import (
	"net/http"

	"github.com/nexo-studio/agency-api/internal/i18n"
)

// Locale negotiates the response language from ?lang= and Accept-Language and stores it
// in the request context
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc := i18n.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", string(loc))
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r.WithContext(i18n.WithLocale(r.Context(), loc)))
	})
}
