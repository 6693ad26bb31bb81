// Package surface holds the state of the display surface: the invocation in
// flight, its result and the chain of promptlets applied so far.
package surface

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/promptlet"
)

type Phase int

const (
	Idle Phase = iota
	Processing
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Failed:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	// ErrChainDepth is returned when a chain would exceed the configured depth.
	ErrChainDepth = errors.New("chain depth limit reached")

	// ErrNothingToChain is returned when there is no finished output to chain from.
	ErrNothingToChain = errors.New("no output to chain from")
)

// Step is one completed link of a chain.
type Step struct {
	Promptlet string
	Input     string
	Output    string
}

// State is a snapshot of the surface.
type State struct {
	Phase     Phase
	RequestID uint64
	Promptlet promptlet.Promptlet
	Input     string
	Result    *executor.Result
	Err       error
	History   []Step
}

// Surface is safe for use from the UI loop and from the goroutines that
// deliver executor results.
type Surface struct {
	mu       sync.Mutex
	maxDepth int
	nextID   uint64
	state    State
}

// New creates an idle surface. maxDepth caps chain length; 0 means no cap.
func New(maxDepth int) *Surface {
	return &Surface{maxDepth: maxDepth}
}

// Begin starts a fresh invocation, discarding any chain history. The
// returned id must accompany the result.
func (s *Surface) Begin(p promptlet.Promptlet, input string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.History = nil
	return s.begin(p, input)
}

// Chain runs p on the selection of the current output, or the whole output
// when the selection is blank.
func (s *Surface) Chain(p promptlet.Promptlet, selection string) (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != Done || s.state.Result == nil {
		return 0, "", ErrNothingToChain
	}
	if s.maxDepth > 0 && len(s.state.History)+1 >= s.maxDepth {
		return 0, "", fmt.Errorf("%w (%d)", ErrChainDepth, s.maxDepth)
	}

	s.state.History = append(s.state.History, Step{
		Promptlet: s.state.Promptlet.Name,
		Input:     s.state.Input,
		Output:    s.state.Result.Text,
	})
	input := ChainInput(selection, s.state.Result.Text)
	return s.begin(p, input), input, nil
}

// Retry re-runs the failed invocation with the same promptlet and input,
// keeping the chain history.
func (s *Surface) Retry() (uint64, promptlet.Promptlet, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != Failed {
		return 0, promptlet.Promptlet{}, "", errors.New("nothing to retry")
	}
	p, input := s.state.Promptlet, s.state.Input
	return s.begin(p, input), p, input, nil
}

func (s *Surface) begin(p promptlet.Promptlet, input string) uint64 {
	s.nextID++
	s.state.Phase = Processing
	s.state.RequestID = s.nextID
	s.state.Promptlet = p
	s.state.Input = input
	s.state.Result = nil
	s.state.Err = nil
	return s.nextID
}

// Finish records the outcome of request id. Outcomes of superseded
// requests are dropped and Finish reports false.
func (s *Surface) Finish(id uint64, res *executor.Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.state.RequestID || s.state.Phase != Processing {
		return false
	}
	if err != nil {
		s.state.Phase = Failed
		s.state.Err = err
		return true
	}
	s.state.Phase = Done
	s.state.Result = res
	return true
}

// Reset returns to idle.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

// Snapshot returns a copy of the current state.
func (s *Surface) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.History = append([]Step(nil), s.state.History...)
	return st
}

// Depth is the number of promptlets applied in the current chain,
// including the one in flight.
func (s *Surface) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase == Idle {
		return 0
	}
	return len(s.state.History) + 1
}

// ChainInput is the trimmed selection when it has content, else the whole
// output.
func ChainInput(selection, output string) string {
	if trimmed := strings.TrimSpace(selection); trimmed != "" {
		return trimmed
	}
	return output
}
