package nvidia

import (
	"context"
	"strings"
	"sync"
)

// scriptedRunner returns canned output keyed by the full command line.
type scriptedRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// on registers output for the command line "name arg1 arg2 ...".
func (r *scriptedRunner) on(commandLine, output string) {
	r.outputs[commandLine] = output
}

// fail registers an error for the command line.
func (r *scriptedRunner) fail(commandLine string, err error) {
	r.errs[commandLine] = err
}

// Run implements Runner.
func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	commandLine := strings.Join(append([]string{name}, args...), " ")

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, commandLine)

	if err := r.errs[commandLine]; err != nil {
		return nil, err
	}

	return []byte(r.outputs[commandLine]), nil
}
