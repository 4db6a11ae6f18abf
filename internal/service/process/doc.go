// Package process stops build servers that outlive the Scala Steward run.
//
// sbt, mill and bloop may leave daemons behind that keep writing into the
// workspace; they are terminated before the workspace is snapshotted.
package process
