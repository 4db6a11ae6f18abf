// Package coursier installs Coursier on the runner and uses it to install
// and launch JVM applications such as scalafmt, scalafix and Scala Steward.
package coursier
