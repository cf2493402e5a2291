package server

import (
	"net/http"
	"net/url"
)

// legacyPageMap translates old-style page names to path segments. Pages
// absent from the map keep their name.
var legacyPageMap = map[string]string{
	"status":      "status",
	"admin":       "manage",
	"events":      "events",
	"display":     "display",
	"poster":      "poster",
	"public":      "public",
	"sponsor":     "sponsors",
	"config":      "config",
	"reports":     "reports",
	"diagnostics": "diagnostics",
}

// LegacyURLCompat redirects old script-hosted URLs of the form
// ?p=<page>&tenant=<id> (or ?page=...) to their path-style equivalents,
// preserving any unrelated query parameters. Requests without both
// parameters pass through untouched.
func LegacyURLCompat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := q.Get("p")
		if page == "" {
			page = q.Get("page")
		}
		tenant := q.Get("tenant")
		if page == "" || tenant == "" {
			next.ServeHTTP(w, r)
			return
		}

		mapped, ok := legacyPageMap[page]
		if !ok {
			mapped = page
		}

		var target url.URL
		if page == "status" {
			target.Path = "/status"
		} else {
			target.Path = "/" + tenant + "/" + mapped
		}

		rest := url.Values{}
		for key, vals := range q {
			if key == "p" || key == "page" || key == "tenant" {
				continue
			}
			rest[key] = vals
		}
		if page == "status" {
			rest.Set("tenant", tenant)
		}
		target.RawQuery = rest.Encode()

		http.Redirect(w, r, target.String(), http.StatusFound)
	})
}
