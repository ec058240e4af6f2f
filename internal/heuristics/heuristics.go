// Package heuristics scores URLs with local, offline signals: shorteners, scam
// keyword signatures, suspicious TLDs, URL shape and region specific lures.
//
// All analyzers are pure and safe for concurrent use.
package heuristics

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tphakala/phishguard/internal/normalize"
)

// Default score thresholds above which an analyzer counts as a detection.
const (
	PatternThreshold   = 0.3
	StructureThreshold = 0.6
	RegionalThreshold  = 0.7
)

// Score contributions.
const (
	shortenerWeight      = 0.3
	signatureWeight      = 0.2
	specialCharWeight    = 0.2
	suspiciousTLDWeight  = 0.4
	regionalPatternBoost = 0.5

	longNetlocWeight     = 0.2
	ipNetlocWeight       = 0.4
	netlocTLDWeight      = 0.3
	deepSubdomainsWeight = 0.2

	regionalKeywordWeight   = 0.3
	regionalSignatureWeight = 0.4

	specialCharRatio = 0.3
	maxNetlocLength  = 50
	maxNetlocDots    = 3
	maxScore         = 1.0
)

// Result is an analyzer score in [0,1] with the signals that produced it.
type Result struct {
	Score   float64  `json:"score"`
	Matches []string `json:"matches,omitempty"`
}

type signature struct {
	name string
	re   *regexp.Regexp
}

func compile(names ...string) []signature {
	sigs := make([]signature, 0, len(names))
	for _, n := range names {
		sigs = append(sigs, signature{name: n, re: regexp.MustCompile("(?i)" + n)})
	}
	return sigs
}

var (
	shorteners     = []string{"bit.ly", "goo.gl", "tinyurl.com", "t.co"}
	suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq"}

	threatSignatures = compile(
		`bit\.ly|goo\.gl|tinyurl\.com`,
		`facebook.*login|fb.*login`,
		`bank.*verify|account.*secure`,
		`free.*gift|win.*prize`,
		`urgent.*action|immediate.*response`,
		`myanmar.*bank|kbz.*verify`,
		`game.*hack|free.*diamonds`,
		`investment.*profit|money.*double`,
	)

	regionalSignatures = compile(
		`kbz.*verify|kbz.*secure`,
		`myanmar.*bank.*login`,
		`lottery.*myanmar|sweepstakes.*burma`,
		`inheritance.*myanmar|refund.*kyat`,
		`police.*myanmar|court.*yangon`,
	)

	regionalKeywords = []string{
		"kbz", "ayeyarwady", "cb", "mab", "uab", "yoma", "kanbawza",
		"myanmar", "burma", "yangon", "mandalay", "naypyidaw",
		"kyat", "mmk", "myanmar kyat", "dollar", "usd",
		"lottery", "sweepstakes", "inheritance", "refund",
		"tax", "customs", "immigration", "police", "court",
	}

	specialChars = regexp.MustCompile(`[^a-zA-Z0-9./-]`)
	leadingIPv4  = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)
)

func clamp(score float64) float64 {
	return math.Min(score, maxScore)
}

func firstContained(s string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return n, true
		}
	}
	return "", false
}

// Pattern scores the full URL text against shorteners, scam keyword signatures,
// special character density, suspicious TLDs and regional scam signatures.
func Pattern(u string) Result {
	if u == "" {
		return Result{}
	}
	lower := strings.ToLower(u)
	var r Result

	if s, ok := firstContained(lower, shorteners); ok {
		r.Score += shortenerWeight
		r.Matches = append(r.Matches, "shortener:"+s)
	}

	for _, sig := range threatSignatures {
		if sig.re.MatchString(lower) {
			r.Score += signatureWeight
			r.Matches = append(r.Matches, "signature:"+sig.name)
		}
	}

	special := len(specialChars.FindAllStringIndex(u, -1))
	if float64(special)/float64(utf8.RuneCountInString(u)) > specialCharRatio {
		r.Score += specialCharWeight
		r.Matches = append(r.Matches, "special_chars")
	}

	if tld, ok := firstContained(lower, suspiciousTLDs); ok {
		r.Score += suspiciousTLDWeight
		r.Matches = append(r.Matches, "tld:"+tld)
	}

	for _, sig := range regionalSignatures {
		if sig.re.MatchString(lower) {
			r.Score += regionalPatternBoost
			r.Matches = append(r.Matches, "regional:"+sig.name)
		}
	}

	r.Score = clamp(r.Score)
	return r
}

// Structure scores the authority part of the URL: overlong netlocs, raw IPv4
// hosts, suspicious TLDs and deep subdomain nesting.
func Structure(u string) Result {
	if u == "" {
		return Result{}
	}
	netloc := strings.ToLower(normalize.Netloc(u))
	var r Result

	if len(netloc) > maxNetlocLength {
		r.Score += longNetlocWeight
		r.Matches = append(r.Matches, "long_netloc")
	}
	if leadingIPv4.MatchString(netloc) {
		r.Score += ipNetlocWeight
		r.Matches = append(r.Matches, "ip_host")
	}
	if tld, ok := firstContained(netloc, suspiciousTLDs); ok {
		r.Score += netlocTLDWeight
		r.Matches = append(r.Matches, "tld:"+tld)
	}
	if strings.Count(netloc, ".") > maxNetlocDots {
		r.Score += deepSubdomainsWeight
		r.Matches = append(r.Matches, "deep_subdomains")
	}

	r.Score = clamp(r.Score)
	return r
}

// Regional scores region specific scam lures: bank and place names, currency
// and authority keywords, and combined lure signatures.
func Regional(u string) Result {
	if u == "" {
		return Result{}
	}
	lower := strings.ToLower(u)
	var r Result

	if kw, ok := firstContained(lower, regionalKeywords); ok {
		r.Score += regionalKeywordWeight
		r.Matches = append(r.Matches, "keyword:"+kw)
	}
	for _, sig := range regionalSignatures {
		if sig.re.MatchString(lower) {
			r.Score += regionalSignatureWeight
			r.Matches = append(r.Matches, "regional:"+sig.name)
		}
	}

	r.Score = clamp(r.Score)
	return r
}
