// Package fetch downloads executables and installs them in place.
package fetch
