// Package check holds the fail-fast preconditions of a run: Maven Central
// reachability and the validation of token, GitHub App, repos file,
// repository config and repository inputs.
package check
