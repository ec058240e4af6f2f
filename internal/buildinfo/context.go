// Package buildinfo contains build-time metadata kept apart from user configuration.
package buildinfo

import "fmt"

// UnknownValue stands in for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context holds build-time metadata injected through -ldflags.
type Context struct {
	Version   string
	BuildDate string
}

// New returns a Context, replacing empty values with UnknownValue.
func New(version, buildDate string) *Context {
	if version == "" {
		version = UnknownValue
	}
	if buildDate == "" {
		buildDate = UnknownValue
	}
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version, or UnknownValue for a nil context.
func (c *Context) GetVersion() string {
	if c == nil {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date, or UnknownValue for a nil context.
func (c *Context) GetBuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the sentry release name, e.g. phishguard@1.2.0.
func (c *Context) Release() string {
	return "phishguard@" + c.GetVersion()
}

// UserAgent identifies this build to upstream APIs.
func (c *Context) UserAgent() string {
	return fmt.Sprintf("PhishGuard/%s", c.GetVersion())
}
