// Package steward holds the plain types a Scala Steward run is built from:
// the authenticated user, the repository list variants and the error
// taxonomy every step reports through.
package steward
