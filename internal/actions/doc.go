// Package actions speaks the GitHub Actions runner protocol: workflow
// commands written to stdout and the GITHUB_PATH file.
package actions
