// Package version exposes build metadata for steward-action.
//
// Version, Commit and BuildTime are injected with -ldflags and default to
// placeholder values for local builds. The cobra `version` subcommand prints
// Full; the action logs Short at startup.
package version
