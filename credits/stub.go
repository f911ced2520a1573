package credits

import (
	"context"
	"sync"
)

// StubService is an in-process Service used by tests and by a worker run
// without a real credit service configured. A stub from NewUnlimitedStub
// accepts every check and ignores balances, including ones set via
// SetBalance; a stub from NewStubService enforces per-user balances, and a
// user with no recorded balance has 0.
type StubService struct {
	mu       sync.Mutex
	balances map[string]int
	unlimited bool
}

// NewUnlimitedStub returns a StubService whose CheckCredits always succeeds
// and whose DeductCredits is a no-op — the default for local/dev runs.
func NewUnlimitedStub() *StubService {
	return &StubService{unlimited: true}
}

// NewStubService returns a StubService that enforces the given starting
// per-user balances.
func NewStubService(balances map[string]int) *StubService {
	cp := make(map[string]int, len(balances))
	for k, v := range balances {
		cp[k] = v
	}
	return &StubService{balances: cp}
}

func (s *StubService) SetBalance(userID string, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances == nil {
		s.balances = make(map[string]int)
	}
	s.balances[userID] = amount
}

func (s *StubService) Balance(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}

func (s *StubService) CheckCredits(_ context.Context, userID string, required int) (bool, error) {
	if s.unlimited {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID] >= required, nil
}

func (s *StubService) DeductCredits(_ context.Context, userID string, amount int) error {
	if s.unlimited {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] -= amount
	return nil
}
