// Package config gathers the action inputs into a single Config.
//
// Values come from an optional YAML defaults file and are then overridden by
// the INPUT_* environment variables the Actions runner sets for each `with:`
// entry. Validate fills defaults and rejects malformed values.
package config
