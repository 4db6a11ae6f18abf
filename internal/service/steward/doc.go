// Package steward runs the action end to end: preconditions, identity,
// workspace, tool installation and the Scala Steward launch, followed by
// the workspace cache save that happens whatever the launch outcome.
package steward
