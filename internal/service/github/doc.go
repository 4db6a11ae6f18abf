// Package github resolves the account behind the GitHub token.
package github
