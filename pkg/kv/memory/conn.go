package memory

import (
	"context"
	"fmt"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
)

// guardConn enforces the ConnectionFailure fault mode on connection-class
// commands.
func (s *Store) guardConn(cmd string) error {
	if s.faults.shouldFail(opConnection) {
		return fmt.Errorf("store %q: %s: %w", s.name, cmd, kv.ErrConnectionRefused)
	}
	return nil
}

// Connect marks the instance connected and emits connect and ready.
func (s *Store) Connect(ctx context.Context) error {
	if err := s.guardConn("CONNECT"); err != nil {
		return err
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	s.events.Emit(EventConnect, s.name)
	s.events.Emit(EventReady, s.name)
	return nil
}

// Disconnect marks the instance disconnected and emits disconnect.
func (s *Store) Disconnect(ctx context.Context) error {
	if err := s.guardConn("DISCONNECT"); err != nil {
		return err
	}
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	s.events.Emit(EventDisconnect, s.name)
	return nil
}

// Quit disconnects and additionally emits end.
func (s *Store) Quit(ctx context.Context) error {
	if err := s.guardConn("QUIT"); err != nil {
		return err
	}
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	s.events.Emit(EventDisconnect, s.name)
	s.events.Emit(EventEnd, s.name)
	return nil
}

// Ping is connection-class but emits no event.
func (s *Store) Ping(ctx context.Context) error {
	return s.guardConn("PING")
}

// Connected reports the simulated connection state.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close drops all state and listeners. The store remains usable only as an
// empty instance.
func (s *Store) Close() error {
	s.mu.Lock()
	s.resetMaps()
	s.connected = false
	s.mu.Unlock()
	s.events.RemoveAllListeners()
	return nil
}

// ResetState restores the pristine state used at test boundaries: empty
// keyspace, zeroed clock, no fault mode, allowed eval scenario, no
// listeners.
func (s *Store) ResetState() error {
	s.mu.Lock()
	s.resetMaps()
	s.connected = false
	s.evalScenario = kv.EvalAllowed
	sim, hasSim := s.clock.(*clock.Simulated)
	s.mu.Unlock()

	if hasSim {
		sim.Reset()
	}
	s.faults.setMode(kv.FaultNone)
	s.events.RemoveAllListeners()
	return nil
}
