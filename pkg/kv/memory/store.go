// Package memory implements the deterministic in-memory store engine.
//
// A Store owns its keyspace and its clock exclusively. Expiration is lazy:
// a key with a due expireAt is deleted the moment any command touches it,
// never by a background sweep, so tests that pin or advance the clock see
// exact TTL behavior.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
)

// Config holds construction parameters for a Store.
type Config struct {
	// Name labels the instance in failure messages.
	Name string
	// Clock supplies "now". Nil gets a fresh Simulated clock, never a
	// shared one.
	Clock clock.Clock
}

// Store is an in-memory implementation of the kv.Store interface backed by
// per-kind maps. One mutex serializes every command: individual commands
// are atomic, ordering across concurrent callers is not defined.
type Store struct {
	mu    sync.Mutex
	name  string
	clock clock.Clock

	strings     map[string]string
	hashes      map[string]map[string]string
	sets        map[string]map[string]struct{}
	lists       map[string][]string
	zsets       map[string]map[string]float64
	kinds       map[string]kv.ValueKind
	expirations map[string]time.Time

	faults       faultInjector
	events       *EventBus
	evalScenario kv.EvalScenario
	connected    bool
}

var _ kv.Store = (*Store)(nil)
var _ kv.Faultable = (*Store)(nil)
var _ kv.Resettable = (*Store)(nil)

// New creates an empty store with its own clock.
func New(cfg Config) *Store {
	name := cfg.Name
	if name == "" {
		name = "memory"
	}
	c := cfg.Clock
	if c == nil {
		c = clock.NewSimulated()
	}
	s := &Store{
		name:   name,
		clock:  c,
		events: NewEventBus(),
	}
	s.resetMaps()
	s.faults.mode = kv.FaultNone
	s.evalScenario = kv.EvalAllowed
	return s
}

func (s *Store) resetMaps() {
	s.strings = make(map[string]string)
	s.hashes = make(map[string]map[string]string)
	s.sets = make(map[string]map[string]struct{})
	s.lists = make(map[string][]string)
	s.zsets = make(map[string]map[string]float64)
	s.kinds = make(map[string]kv.ValueKind)
	s.expirations = make(map[string]time.Time)
}

// Name returns the instance label used in failure messages.
func (s *Store) Name() string { return s.name }

// Clock returns the instance's clock. When constructed without an explicit
// clock this is a *clock.Simulated usable for TTL tests.
func (s *Store) Clock() clock.Clock { return s.clock }

// Events returns the instance's connection-lifecycle event bus.
func (s *Store) Events() *EventBus { return s.events }

// guardData enforces the Timeout fault mode on read/write commands.
func (s *Store) guardData(cmd string) error {
	if s.faults.shouldFail(opData) {
		return fmt.Errorf("store %q: %s: %w", s.name, cmd, kv.ErrCommandTimeout)
	}
	return nil
}

// deleteLocked removes a key from every structure. Lock must be held.
func (s *Store) deleteLocked(key string) {
	delete(s.strings, key)
	delete(s.hashes, key)
	delete(s.sets, key)
	delete(s.lists, key)
	delete(s.zsets, key)
	delete(s.kinds, key)
	delete(s.expirations, key)
}

// expireIfDue deletes the key when its expiry has passed and reports
// whether it did. Lock must be held.
func (s *Store) expireIfDue(key string) bool {
	exp, ok := s.expirations[key]
	if !ok {
		return false
	}
	if s.clock.Now().Before(exp) {
		return false
	}
	s.deleteLocked(key)
	return true
}

// liveKind returns the key's kind after lazy expiry, KindNone when absent.
// Lock must be held.
func (s *Store) liveKind(key string) kv.ValueKind {
	s.expireIfDue(key)
	if kind, ok := s.kinds[key]; ok {
		return kind
	}
	return kv.KindNone
}

// requireKind verifies the key is absent or of the wanted kind. Lock must
// be held.
func (s *Store) requireKind(cmd, key string, want kv.ValueKind) error {
	kind := s.liveKind(key)
	if kind == kv.KindNone || kind == want {
		return nil
	}
	return fmt.Errorf("store %q: %s %q holds %s: %w", s.name, cmd, key, kind, kv.ErrWrongType)
}

func (s *Store) notFound(cmd, key string) error {
	return fmt.Errorf("store %q: %s %q: %w", s.name, cmd, key, kv.ErrNotFound)
}

// String commands

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := s.guardData("GET"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("GET", key, kv.KindString); err != nil {
		return "", err
	}
	value, ok := s.strings[key]
	if !ok {
		return "", s.notFound("GET", key)
	}
	return value, nil
}

// Set stores a string value and clears any TTL on the key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.guardData("SET"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(key)
	s.strings[key] = value
	s.kinds[key] = kv.KindString
	return nil
}

// SetEx stores a string value with expireAt = now + ttl.
func (s *Store) SetEx(ctx context.Context, key string, ttl time.Duration, value string) error {
	if err := s.guardData("SETEX"); err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("store %q: SETEX %q: invalid ttl %v", s.name, key, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(key)
	s.strings[key] = value
	s.kinds[key] = kv.KindString
	s.expirations[key] = s.clock.Now().Add(ttl)
	return nil
}

func (s *Store) Append(ctx context.Context, key, value string) (int64, error) {
	if err := s.guardData("APPEND"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("APPEND", key, kv.KindString); err != nil {
		return 0, err
	}
	next := s.strings[key] + value
	s.strings[key] = next
	s.kinds[key] = kv.KindString
	return int64(len(next)), nil
}

func (s *Store) StrLen(ctx context.Context, key string) (int64, error) {
	if err := s.guardData("STRLEN"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("STRLEN", key, kv.KindString); err != nil {
		return 0, err
	}
	return int64(len(s.strings[key])), nil
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.incrBy(ctx, "INCR", key, 1)
}

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.incrBy(ctx, "INCRBY", key, n)
}

func (s *Store) Decr(ctx context.Context, key string) (int64, error) {
	return s.incrBy(ctx, "DECR", key, -1)
}

func (s *Store) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.incrBy(ctx, "DECRBY", key, -n)
}

// incrBy operates on the decimal string form of the value. A missing key
// counts from zero; the key's TTL, if any, is left untouched.
func (s *Store) incrBy(_ context.Context, cmd, key string, n int64) (int64, error) {
	if err := s.guardData(cmd); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind(cmd, key, kv.KindString); err != nil {
		return 0, err
	}
	var current int64
	if raw, ok := s.strings[key]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("store %q: %s %q: %w", s.name, cmd, key, kv.ErrNotInteger)
		}
		current = parsed
	}
	next := current + n
	s.strings[key] = strconv.FormatInt(next, 10)
	s.kinds[key] = kv.KindString
	return next, nil
}

// Key commands

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := s.guardData("DEL"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		if s.liveKind(key) != kv.KindNone {
			deleted++
		}
		s.deleteLocked(key)
	}
	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	if err := s.guardData("EXISTS"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, key := range keys {
		if s.liveKind(key) != kv.KindNone {
			count++
		}
	}
	return count, nil
}

// Expire updates the TTL of an existing, non-expired key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.guardData("EXPIRE"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveKind(key) == kv.KindNone {
		return false, nil
	}
	if ttl <= 0 {
		s.deleteLocked(key)
		return true, nil
	}
	s.expirations[key] = s.clock.Now().Add(ttl)
	return true, nil
}

// TTL reports -2 for absent/expired keys, -1 for keys without expiry, else
// the floor of the remaining milliseconds in whole seconds. A live key with
// less than a second left reports 0, never a negative value.
func (s *Store) TTL(ctx context.Context, key string) (int64, error) {
	if err := s.guardData("TTL"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveKind(key) == kv.KindNone {
		return kv.TTLKeyMissing, nil
	}
	exp, ok := s.expirations[key]
	if !ok {
		return kv.TTLNoExpiry, nil
	}
	remaining := exp.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return int64(remaining / time.Second), nil
}

// Keys purges expired keys, then returns those matching the anchored glob
// pattern: '*' any sequence, '?' any single character, the rest literal.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := s.guardData("KEYS"); err != nil {
		return nil, err
	}
	re, err := compileGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("store %q: KEYS %q: %w", s.name, pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()
	keys := make([]string, 0, len(s.kinds))
	for key := range s.kinds {
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) purgeExpiredLocked() {
	now := s.clock.Now()
	for key, exp := range s.expirations {
		if !now.Before(exp) {
			s.deleteLocked(key)
		}
	}
}

func compileGlob(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	return regexp.Compile("^" + quoted + "$")
}

func (s *Store) Type(ctx context.Context, key string) (kv.ValueKind, error) {
	if err := s.guardData("TYPE"); err != nil {
		return kv.KindNone, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveKind(key), nil
}

// DBSize counts non-expired keys, purging expired ones first.
func (s *Store) DBSize(ctx context.Context) (int64, error) {
	if err := s.guardData("DBSIZE"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()
	return int64(len(s.kinds)), nil
}

func (s *Store) FlushDB(ctx context.Context) error {
	if err := s.guardData("FLUSHDB"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetMaps()
	return nil
}

// FlushAll is identical to FlushDB; the engine models a single database.
func (s *Store) FlushAll(ctx context.Context) error {
	if err := s.guardData("FLUSHALL"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetMaps()
	return nil
}
