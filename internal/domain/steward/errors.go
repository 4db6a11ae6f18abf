package steward

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	// ErrConnectivity indicates the artifact registry is unreachable.
	ErrConnectivity = errors.New("connectivity error")
	// ErrAuth indicates a missing or rejected GitHub token.
	ErrAuth = errors.New("authentication error")
	// ErrConfig indicates an invalid combination of inputs.
	ErrConfig = errors.New("configuration error")
	// ErrIO indicates a workspace filesystem failure.
	ErrIO = errors.New("io error")
	// ErrCache indicates a cache restore or save failure.
	ErrCache = errors.New("cache error")
	// ErrLaunch indicates an external tool exited unsuccessfully.
	ErrLaunch = errors.New("launch failure")
)

// ConnectivityError reports that a host could not be reached.
type ConnectivityError struct {
	Host string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to connect to %s: %v", e.Host, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectivityError) Unwrap() error { return e.Err }

// Is returns true if the target error is ErrConnectivity.
func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// AuthError reports a token problem.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error { return e.Err }

// Is returns true if the target error is ErrAuth.
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// ConfigError reports an invalid input or input combination.
type ConfigError struct {
	Input   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Input == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Input, e.Message)
}

// Is returns true if the target error is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// IOError reports a filesystem failure while building the workspace.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error { return e.Err }

// Is returns true if the target error is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// CacheError reports a workspace cache failure.
type CacheError struct {
	// Op is either "restore" or "save".
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("unable to %s workspace cache %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CacheError) Unwrap() error { return e.Err }

// Is returns true if the target error is ErrCache.
func (e *CacheError) Is(target error) bool { return target == ErrCache }

// LaunchFailure reports a non-zero exit of an external tool.
type LaunchFailure struct {
	Tool     string
	ExitCode int
	Err      error
}

func (e *LaunchFailure) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s could not be started: %v", e.Tool, e.Err)
	}

	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

// Unwrap returns the underlying cause.
func (e *LaunchFailure) Unwrap() error { return e.Err }

// Is returns true if the target error is ErrLaunch.
func (e *LaunchFailure) Is(target error) bool { return target == ErrLaunch }
