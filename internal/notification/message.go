package notification

import (
	"fmt"
	"math"
	"strings"

	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/normalize"
)

// Defang rewrites u so chat clients do not turn it into a clickable link:
// the scheme becomes hxxp(s) and dots in the authority become [.].
func Defang(u string) string {
	netloc := normalize.Netloc(u)
	if netloc != "" {
		u = strings.Replace(u, netloc, strings.ReplaceAll(netloc, ".", "[.]"), 1)
	}
	switch {
	case strings.HasPrefix(u, "https://"):
		return "hxxps://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "hxxp://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// formatAlert renders the alert title and body for a verdict.
func formatAlert(instance string, v *detector.Verdict) (title, body string) {
	title = fmt.Sprintf("%s threat detected", strings.ToUpper(string(v.ThreatLevel)))
	if instance != "" {
		title = "[" + instance + "] " + title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", Defang(v.URL))
	fmt.Fprintf(&b, "Threat level: %s\n", v.ThreatLevel)
	fmt.Fprintf(&b, "Confidence: %d%%\n", int(math.Round(v.Confidence*100)))
	if len(v.DetectionMethods) > 0 {
		fmt.Fprintf(&b, "Detected by: %s\n", strings.Join(v.DetectionMethods, ", "))
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	b.WriteString(v.Message)
	return title, b.String()
}
