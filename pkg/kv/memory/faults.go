package memory

import (
	"sync"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// opClass partitions commands for fault injection: connection-class
// commands (CONNECT/DISCONNECT/QUIT/PING) versus data commands.
type opClass int

const (
	opConnection opClass = iota
	opData
)

// faultInjector decides, purely from the current mode and the operation's
// class, whether an operation fails. No randomness.
type faultInjector struct {
	mu   sync.Mutex
	mode kv.FaultMode
}

func (f *faultInjector) setMode(mode kv.FaultMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mode == "" {
		mode = kv.FaultNone
	}
	f.mode = mode
}

func (f *faultInjector) currentMode() kv.FaultMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *faultInjector) shouldFail(class opClass) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.mode {
	case kv.FaultConnectionFailure:
		return class == opConnection
	case kv.FaultTimeout:
		return class == opData
	default:
		return false
	}
}

// SetFaultMode arms (or clears) the instance's fault mode.
func (s *Store) SetFaultMode(mode kv.FaultMode) {
	s.faults.setMode(mode)
}

// FaultMode returns the currently armed fault mode.
func (s *Store) FaultMode() kv.FaultMode {
	return s.faults.currentMode()
}
