// Package privacy scrubs credentials out of text that may reach logs, alerts or
// error telemetry.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// any scheme://... token, which covers shoutrrr service URLs such as
	// telegram://token@telegram?chats=1
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)

	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage replaces every URL in message with AnonymizeURL.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL reduces rawURL to its scheme, a host category and a short hash,
// so the same endpoint stays recognizable across log lines without exposing
// tokens, hostnames or paths.
func AnonymizeURL(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}
	return fmt.Sprintf("%s://%s/%x", strings.ToLower(parsed.Scheme), categorizeHost(parsed.Hostname()), hash[:6])
}

func categorizeHost(host string) string {
	switch {
	case host == "":
		return "unknown-host"
	case host == "localhost" || host == "127.0.0.1" || host == "::1":
		return "localhost"
	case isPrivateIP(host):
		return "private-ip"
	case ipv4Pattern.MatchString(host) || strings.Contains(host, ":"):
		return "public-ip"
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + strings.ToLower(host[i+1:])
	}
	return "service"
}

var privatePrefixes = []string{
	"10.", "192.168.", "169.254.",
	"172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
	"fc00:", "fd00:", "fe80:",
}

func isPrivateIP(host string) bool {
	host = strings.ToLower(host)
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}
