package conf

import "github.com/tphakala/phishguard/internal/buildinfo"

// Context is the state shared by CLI commands. Settings is filled in by the
// root command before any subcommand runs.
type Context struct {
	ConfigPath string
	Settings   *Settings
	Build      *buildinfo.Context
	JSONOutput bool
}

// NewContext returns a Context for build with no settings loaded yet.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}
