package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds scheme", "example.com", "https://example.com"},
		{"trims whitespace", "  https://example.com/path \n", "https://example.com/path"},
		{"keeps http", "http://192.168.1.1/malware.exe", "http://192.168.1.1/malware.exe"},
		{"lowercases scheme only", "HTTP://Example.com/Path", "http://Example.com/Path"},
		{"strips tracking keys in order",
			"https://shop.example/item?id=7&utm_source=mail&ref=x&color=red&utm_campaign=c",
			"https://shop.example/item?id=7&color=red"},
		{"exact key match only",
			"https://example.com/?referrer=a&sources=b&utm_source_x=1",
			"https://example.com/?referrer=a&sources=b&utm_source_x=1"},
		{"all params tracked", "https://example.com?utm_source=x&source=y", "https://example.com"},
		{"drops fragment", "https://example.com/page?a=1#section", "https://example.com/page?a=1"},
		{"keeps encoding", "https://example.com/a%20b?q=%E2%9C%93&x=a+b", "https://example.com/a%20b?q=%E2%9C%93&x=a+b"},
		{"keeps userinfo", "https://paypal.com@evil.tk/login", "https://paypal.com@evil.tk/login"},
		{"unparseable kept", "https://exa mple.com/x", "https://exa mple.com/x"},
		{"unparseable gets scheme", "exa mple.com/%zz", "https://exa mple.com/%zz"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := URL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, URL(got), "URL must be idempotent")
		})
	}
}

func TestNetloc(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com:8443", Netloc("https://example.com:8443/path"))
	assert.Equal(t, "kbz-verify.secure-banking.cf", Netloc("kbz-verify.secure-banking.cf/login"))
	assert.Equal(t, "user@10.0.0.1", Netloc("http://user@10.0.0.1/"))
	assert.Equal(t, "exa mple.com", Netloc("https://exa mple.com/x?y"))
	assert.Empty(t, Netloc(""))
}

func TestHost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", Host("https://Example.COM:8080/path"))
	assert.Equal(t, "evil.tk", Host("https://paypal.com@evil.tk/login"))
	assert.Equal(t, "xn--mnchen-3ya.de", Host("https://münchen.de/"))
	assert.Equal(t, "192.168.1.1", Host("http://192.168.1.1/malware.exe"))
	assert.Equal(t, "example.org", Host("example.org"))
	assert.Empty(t, Host("https://exa mple.com"))
	assert.Empty(t, Host(""))
}

func TestEnsureScheme(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://a.b", EnsureScheme("a.b"))
	assert.Equal(t, "HTTPS://a.b", EnsureScheme("HTTPS://a.b"))
	assert.Equal(t, "https://ftp://a.b", EnsureScheme("ftp://a.b"))
}
