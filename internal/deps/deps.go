package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"fileconv/internal/services"
)

// Requirement defines an external binary fileconv can use.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Report resolves every capability and summarizes the outcome. Capabilities
// with a fallback are reported as optional.
func Report(ctx context.Context, r *Resolver) []Status {
	results := make([]Status, 0, len(specs))
	for _, c := range Capabilities() {
		spec, _ := Lookup(c)
		status := Status{
			Name:        string(c),
			Description: spec.Description,
			Optional:    spec.Fallback != "",
		}
		tool, err := r.Resolve(ctx, c)
		switch {
		case err == nil:
			status.Available = true
			status.Command = tool.Path
			status.Detail = tool.Version
		case errors.Is(err, services.ErrToolUnavailable):
			status.Command = strings.Join(spec.Candidates, ", ")
			status.Detail = "not installed"
			if spec.Fallback != "" {
				status.Detail += "; using " + spec.Fallback
			}
		default:
			status.Command = strings.Join(spec.Candidates, ", ")
			status.Detail = services.FailureMessage(err)
		}
		results = append(results, status)
	}
	return results
}
