package process

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/scala-steward-action/internal/logger"
)

// DefaultStrayExecutables are build-server executables known to outlive a run.
//
//nolint:gochecknoglobals // Read-only default list.
var DefaultStrayExecutables = []string{"bloop", "mill", "sbtn"}

// lister returns the running processes.
type lister func() ([]ps.Process, error)

// killer terminates a process by id.
type killer func(pid int) error

// Reaper terminates stray processes by executable name.
type Reaper struct {
	names map[string]struct{}
	list  lister
	kill  killer
	self  int
}

// NewReaper returns a Reaper for the given executable names.
func NewReaper(names []string) *Reaper {
	return &Reaper{
		names: sliceToSet(names),
		list:  ps.Processes,
		kill:  killProcess,
		self:  os.Getpid(),
	}
}

// Reap kills every matching process except the current one and returns
// how many were terminated.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	if len(r.names) == 0 {
		return 0, nil
	}

	processList, err := r.list()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	killed := 0

	for _, process := range processList {
		if process.Pid() == r.self {
			continue
		}

		if _, found := r.names[process.Executable()]; !found {
			continue
		}

		if err = r.kill(process.Pid()); err != nil {
			return killed, fmt.Errorf("kill %s (%d): %w", process.Executable(), process.Pid(), err)
		}

		logger.InfoKV(ctx, "Terminated stray process", "executable", process.Executable(), "pid", process.Pid())

		killed++
	}

	return killed, nil
}

func killProcess(pid int) error {
	runningProcess, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return runningProcess.Kill()
}

// sliceToSet converts a slice to a set for quick lookups.
func sliceToSet[T comparable](elements []T) map[T]struct{} {
	result := make(map[T]struct{}, len(elements))
	for _, value := range elements {
		result[value] = struct{}{}
	}

	return result
}
