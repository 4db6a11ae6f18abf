package actions

import (
	"fmt"
	"io"

	"github.com/sethvargo/go-githubactions"
)

// FailureGlyph prefixes every failure message.
const FailureGlyph = "✕"

// Annotator writes workflow commands.
type Annotator struct {
	action *githubactions.Action
}

// NewAnnotator returns an Annotator writing to out.
func NewAnnotator(out io.Writer) *Annotator {
	return &Annotator{action: githubactions.New(githubactions.WithWriter(out))}
}

// SetFailed marks the step failed with the formatted error message.
// The caller is responsible for the non-zero exit.
func (a *Annotator) SetFailed(err error) {
	a.action.Errorf("%s %s", FailureGlyph, err)
}

// Warning emits a warning annotation that leaves the step status alone.
func (a *Annotator) Warning(err error) {
	a.action.Warningf("%s %s", FailureGlyph, err)
}

// Debug emits a message visible only with step debug logging enabled.
func (a *Annotator) Debug(message string) {
	a.action.Debugf("%s", message)
}

// AddPath prepends dir to PATH for the following workflow steps.
// Without a GITHUB_PATH file (local runs) it does nothing.
func AddPath(env map[string]string, dir string) error {
	if env["GITHUB_PATH"] == "" {
		return nil
	}

	action := githubactions.New(githubactions.WithGetenv(func(key string) string {
		return env[key]
	}))

	if err := action.AddPath(dir); err != nil {
		return fmt.Errorf("update GITHUB_PATH: %w", err)
	}

	return nil
}
