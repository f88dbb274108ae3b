// Package i18n picks a message locale and renders the localised emails.
package i18n

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const DefaultLocale = "en"

var supportedLocales = []string{"en", "de"}

func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

// NormalizeLocale returns the supported base language with the highest
// quality in an Accept-Language value. Ties keep header order.
func NormalizeLocale(header string) string {
	best, bestQ := DefaultLocale, 0.0
	for part := range strings.SplitSeq(header, ",") {
		tag, params, _ := strings.Cut(part, ";")
		lang, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
		if !slices.Contains(supportedLocales, lang) {
			continue
		}
		if q := quality(params); q > bestQ {
			best, bestQ = lang, q
		}
	}
	return best
}

func quality(params string) float64 {
	for p := range strings.SplitSeq(params, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(key) != "q" {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return q
	}
	return 1
}
