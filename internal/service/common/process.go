//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"
)

// commNameLimit is the length Linux truncates process names to in /proc/<pid>/stat.
const commNameLimit = 15

// ProcessTable answers questions about running processes.
type ProcessTable interface {
	// Executable returns the executable name of pid and whether it is running.
	Executable(pid int) (string, bool, error)
}

// SystemProcesses reads the operating system process table.
type SystemProcesses struct{}

// Executable implements ProcessTable.
func (SystemProcesses) Executable(pid int) (string, bool, error) {
	process, err := ps.FindProcess(pid)
	if err != nil {
		return "", false, fmt.Errorf("find process %d: %w", pid, err)
	}

	if process == nil {
		return "", false, nil
	}

	return process.Executable(), true, nil
}

// OtherInstances returns PIDs of other running processes named executable.
func OtherInstances(executable string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !sameExecutable(process.Executable(), executable) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// IsHeldBy reports whether pid is alive and runs executable, meaning a marker
// written by pid still belongs to a live controller.
func IsHeldBy(table ProcessTable, pid int, executable string) (bool, error) {
	if pid <= 0 || pid == os.Getpid() {
		return false, nil
	}

	name, running, err := table.Executable(pid)
	if err != nil {
		return false, err
	}

	return running && sameExecutable(name, executable), nil
}

// sameExecutable compares a process table name with an executable name,
// allowing for the kernel cutting long names short.
func sameExecutable(name, executable string) bool {
	if name == executable {
		return true
	}

	return len(executable) > commNameLimit && len(name) == commNameLimit && name == executable[:commNameLimit]
}
