// Package probe answers what the registry needs to know about a candidate
// hook program before it enters the approval workflow: does it exist as an
// executable program, and which risk indicators does it carry.
//
// Bytecode analysis is a collaborator concern and stays behind this
// interface. The registry only consumes the answers.
package probe

import (
	"context"
	"sync"

	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
)

// ProgramInfo is one probe answer for one program.
type ProgramInfo struct {
	Executable bool
	Flags      models.RiskFlags
}

// Prober inspects a candidate program in its execution environment.
type Prober interface {
	// Inspect returns what is known about the program. Unknown programs
	// return Executable=false rather than an error; errors are reserved for
	// probe-side failures.
	Inspect(ctx context.Context, programID id.ProgramID) (ProgramInfo, error)
}

// Static serves answers from a fixed table. Used in dev and tests where no
// execution environment is reachable.
type Static struct {
	mu       sync.RWMutex
	programs map[id.ProgramID]ProgramInfo
}

// NewStatic constructs an empty static prober.
func NewStatic() *Static {
	return &Static{programs: make(map[id.ProgramID]ProgramInfo)}
}

// Register records or replaces the probe answer for a program.
func (s *Static) Register(programID id.ProgramID, info ProgramInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[programID] = info
}

func (s *Static) Inspect(_ context.Context, programID id.ProgramID) (ProgramInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.programs[programID], nil
}

// Permissive treats every program as executable with zero flags. Useful when
// submissions should be accepted on trust and assessed manually.
type Permissive struct{}

func (Permissive) Inspect(context.Context, id.ProgramID) (ProgramInfo, error) {
	return ProgramInfo{Executable: true}, nil
}
