package httpclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyPreview(t *testing.T) {
	t.Parallel()

	page := []byte("<html><head><title>502</title></head><body><h1>Bad   Gateway</h1>\n<p>cloudflare</p></body></html>")
	got := BodyPreview(page, "text/html; charset=utf-8", 0)
	assert.Contains(t, got, "Bad Gateway")
	assert.NotContains(t, got, "<h1>")
	assert.NotContains(t, got, "\n")

	assert.Equal(t, "plain text", BodyPreview([]byte("  plain\n text "), "text/plain", 0))

	long := BodyPreview([]byte(strings.Repeat("a", 300)), "", 10)
	assert.Equal(t, strings.Repeat("a", 10)+"...", long)

	utf := BodyPreview([]byte("ääää"), "", 3)
	assert.Equal(t, "ä...", utf)
}
