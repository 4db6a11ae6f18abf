// Package logger wraps zap with a global sugared logger and context helpers.
//
// Every step of the action receives a context and pulls its logger from it,
// so a step name attached with WithName shows up on each line it writes.
package logger
