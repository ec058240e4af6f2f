// Package output renders command results as indented JSON or plain text.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/tphakala/phishguard/internal/detector"
)

// Printer writes results in the selected format.
type Printer struct {
	w    io.Writer
	json bool
}

// New returns a Printer writing to w, as JSON when asJSON is set.
func New(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, json: asJSON}
}

// JSON reports whether p prints JSON.
func (p *Printer) JSON() bool {
	return p.json
}

// Print writes v as JSON, or calls text when p prints plain text.
func (p *Printer) Print(v any, text func(w io.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.w)
	return nil
}

// Percent formats a 0..1 confidence as a whole percentage.
func Percent(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(confidence*100)))
}

// Verdict prints one analysis result.
func (p *Printer) Verdict(v *detector.Verdict) error {
	return p.Print(v, func(w io.Writer) {
		fmt.Fprintf(w, "%s\n", v.URL)
		fmt.Fprintf(w, "  threat level: %s (confidence %s)\n", v.ThreatLevel, Percent(v.Confidence))
		if len(v.DetectionMethods) > 0 {
			fmt.Fprintf(w, "  detected by:  %s\n", strings.Join(v.DetectionMethods, ", "))
		}
		for _, warning := range v.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
		fmt.Fprintf(w, "  %s\n", v.Message)
		fmt.Fprintf(w, "  analyzed in %dms\n", v.ResponseTimeMs)
	})
}
