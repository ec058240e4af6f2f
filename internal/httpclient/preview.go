package httpclient

import (
	"bytes"
	"strings"

	"github.com/k3a/html2text"
)

// DefaultPreviewLength caps response previews written to logs.
const DefaultPreviewLength = 200

// BodyPreview returns a single line excerpt of a response body for logging.
// HTML error pages from proxies and CDNs are reduced to their text.
func BodyPreview(body []byte, contentType string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	text := string(body)
	if strings.Contains(strings.ToLower(contentType), "html") || bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		text = html2text.HTML2Text(text)
	}
	text = strings.Join(strings.Fields(text), " ")

	if len(text) > maxLen {
		cut := maxLen
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
