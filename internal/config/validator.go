// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch aborts the command, so a bad driver name or version never
// reaches the store or the transport.
//
// The rules in use are `required`, `oneof`, `max`, and `gte`.  The CLI
// reuses the same instance through `Validate` for its send options.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}

// Validate checks any tagged struct with the shared validator instance.
func Validate(s any) error {
	return v.Struct(s)
}
