// Package normalize canonicalizes URLs before they are hashed, looked up or scored.
package normalize

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// trackingParams are query keys removed by URL. Matching is exact and case sensitive.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"ref":          {},
	"source":       {},
}

const defaultScheme = "https://"

// HasScheme reports whether raw starts with http:// or https://, ignoring case.
func HasScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// EnsureScheme prepends https:// when raw has no http(s) scheme.
func EnsureScheme(raw string) string {
	if HasScheme(raw) {
		return raw
	}
	return defaultScheme + raw
}

// URL returns the canonical form of raw: surrounding whitespace trimmed, https://
// added when no http(s) scheme is present, tracking parameters removed and the
// fragment dropped. Kept query pairs retain their order and encoding.
//
// URL never fails. Input net/url cannot parse is returned with only the scheme added.
// Empty input yields "". URL is idempotent.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = EnsureScheme(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(authority(u))
	b.WriteString(u.EscapedPath())

	if query := stripTracking(u.RawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}

	return b.String()
}

// stripTracking filters raw query pairs without re-encoding the survivors
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if _, tracking := trackingParams[key]; tracking {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func authority(u *url.URL) string {
	if u.User == nil {
		return u.Host
	}
	return u.User.String() + "@" + u.Host
}

// Netloc returns the raw authority (userinfo@host:port) of u. A missing scheme
// is assumed to be https. Unparseable input falls back to the text between the
// scheme and the first path, query or fragment delimiter.
func Netloc(u string) string {
	u = EnsureScheme(strings.TrimSpace(u))
	if parsed, err := url.Parse(u); err == nil {
		return authority(parsed)
	}

	_, rest, _ := strings.Cut(u, "://")
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// Host returns the lowercase ASCII (punycode) hostname of u without port or
// userinfo, or "" when no valid hostname can be derived.
func Host(u string) string {
	parsed, err := url.Parse(EnsureScheme(strings.TrimSpace(u)))
	if err != nil {
		return ""
	}
	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return ""
	}
	if net.ParseIP(hostname) != nil {
		return hostname
	}
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		return ""
	}
	return ascii
}
