package config

import "strings"

// ConfigError collects everything wrong with a config file in one pass so
// the user can fix it all at once instead of replaying load-fail cycles.
type ConfigError struct {
	Path    string   // config file path
	Missing []string // unresolved ${ENV} references
	Errors  []string // validation failures
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	b.WriteString(": invalid configuration")

	if len(e.Missing) > 0 {
		b.WriteString("\nmissing environment variables: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	for _, msg := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return b.String()
}

// HasErrors reports whether anything was collected.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
