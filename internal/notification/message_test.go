package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefang(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hxxps://evil[.]example/a.b", Defang("https://evil.example/a.b"))
	assert.Equal(t, "hxxp://192[.]168[.]1[.]1/malware.exe", Defang("http://192.168.1.1/malware.exe"))
	assert.Equal(t, "hxxps://user@evil[.]tk:8443/x", Defang("https://user@evil.tk:8443/x"))
}
