package memory

import (
	"context"
	"sort"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// Hash commands

func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	if err := s.guardData("HGET"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HGET", key, kv.KindHash); err != nil {
		return "", err
	}
	value, ok := s.hashes[key][field]
	if !ok {
		return "", s.notFound("HGET", key)
	}
	return value, nil
}

func (s *Store) HSet(ctx context.Context, key, field, value string) (int64, error) {
	if err := s.guardData("HSET"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HSET", key, kv.KindHash); err != nil {
		return 0, err
	}
	if s.hashes[key] == nil {
		s.hashes[key] = make(map[string]string)
		s.kinds[key] = kv.KindHash
	}
	_, existed := s.hashes[key][field]
	s.hashes[key][field] = value
	if existed {
		return 0, nil
	}
	return 1, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := s.guardData("HGETALL"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HGETALL", key, kv.KindHash); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(s.hashes[key]))
	for field, value := range s.hashes[key] {
		out[field] = value
	}
	return out, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if err := s.guardData("HDEL"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HDEL", key, kv.KindHash); err != nil {
		return 0, err
	}
	hash := s.hashes[key]
	var deleted int64
	for _, field := range fields {
		if _, ok := hash[field]; ok {
			delete(hash, field)
			deleted++
		}
	}
	if len(hash) == 0 {
		s.deleteLocked(key)
	}
	return deleted, nil
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	if err := s.guardData("HEXISTS"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HEXISTS", key, kv.KindHash); err != nil {
		return false, err
	}
	_, ok := s.hashes[key][field]
	return ok, nil
}

func (s *Store) HKeys(ctx context.Context, key string) ([]string, error) {
	if err := s.guardData("HKEYS"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HKEYS", key, kv.KindHash); err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(s.hashes[key]))
	for field := range s.hashes[key] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields, nil
}

func (s *Store) HVals(ctx context.Context, key string) ([]string, error) {
	if err := s.guardData("HVALS"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HVALS", key, kv.KindHash); err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(s.hashes[key]))
	for field := range s.hashes[key] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	values := make([]string, len(fields))
	for i, field := range fields {
		values[i] = s.hashes[key][field]
	}
	return values, nil
}

func (s *Store) HLen(ctx context.Context, key string) (int64, error) {
	if err := s.guardData("HLEN"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("HLEN", key, kv.KindHash); err != nil {
		return 0, err
	}
	return int64(len(s.hashes[key])), nil
}

// Set commands

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := s.guardData("SADD"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("SADD", key, kv.KindSet); err != nil {
		return 0, err
	}
	if s.sets[key] == nil {
		s.sets[key] = make(map[string]struct{})
		s.kinds[key] = kv.KindSet
	}
	var added int64
	for _, member := range members {
		if _, ok := s.sets[key][member]; !ok {
			s.sets[key][member] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if err := s.guardData("SREM"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("SREM", key, kv.KindSet); err != nil {
		return 0, err
	}
	set := s.sets[key]
	var removed int64
	for _, member := range members {
		if _, ok := set[member]; ok {
			delete(set, member)
			removed++
		}
	}
	if len(set) == 0 {
		s.deleteLocked(key)
	}
	return removed, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := s.guardData("SMEMBERS"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("SMEMBERS", key, kv.KindSet); err != nil {
		return nil, err
	}
	members := make([]string, 0, len(s.sets[key]))
	for member := range s.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if err := s.guardData("SISMEMBER"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("SISMEMBER", key, kv.KindSet); err != nil {
		return false, err
	}
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	if err := s.guardData("SCARD"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("SCARD", key, kv.KindSet); err != nil {
		return 0, err
	}
	return int64(len(s.sets[key])), nil
}

// List commands

// LPush prepends each value in call order, so the last argument ends up at
// the head: LPUSH k a b leaves the list as [b a].
func (s *Store) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	if err := s.guardData("LPUSH"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("LPUSH", key, kv.KindList); err != nil {
		return 0, err
	}
	if s.lists[key] == nil {
		s.kinds[key] = kv.KindList
	}
	for _, value := range values {
		s.lists[key] = append([]string{value}, s.lists[key]...)
	}
	return int64(len(s.lists[key])), nil
}

func (s *Store) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	if err := s.guardData("RPUSH"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("RPUSH", key, kv.KindList); err != nil {
		return 0, err
	}
	if s.lists[key] == nil {
		s.kinds[key] = kv.KindList
	}
	s.lists[key] = append(s.lists[key], values...)
	return int64(len(s.lists[key])), nil
}

func (s *Store) LPop(ctx context.Context, key string) (string, error) {
	if err := s.guardData("LPOP"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("LPOP", key, kv.KindList); err != nil {
		return "", err
	}
	list := s.lists[key]
	if len(list) == 0 {
		return "", s.notFound("LPOP", key)
	}
	value := list[0]
	s.lists[key] = list[1:]
	if len(s.lists[key]) == 0 {
		s.deleteLocked(key)
	}
	return value, nil
}

func (s *Store) RPop(ctx context.Context, key string) (string, error) {
	if err := s.guardData("RPOP"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("RPOP", key, kv.KindList); err != nil {
		return "", err
	}
	list := s.lists[key]
	if len(list) == 0 {
		return "", s.notFound("RPOP", key)
	}
	value := list[len(list)-1]
	s.lists[key] = list[:len(list)-1]
	if len(s.lists[key]) == 0 {
		s.deleteLocked(key)
	}
	return value, nil
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	if err := s.guardData("LLEN"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("LLEN", key, kv.KindList); err != nil {
		return 0, err
	}
	return int64(len(s.lists[key])), nil
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := s.guardData("LRANGE"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("LRANGE", key, kv.KindList); err != nil {
		return nil, err
	}
	list := s.lists[key]
	start, stop, empty := clampRange(start, stop, int64(len(list)))
	if empty {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

// clampRange resolves negative indices and clamps an inclusive range to
// [0, length). empty is true when the resolved range selects nothing.
func clampRange(start, stop, length int64) (int64, int64, bool) {
	if length == 0 {
		return 0, 0, true
	}
	if start < 0 {
		start = length + start
	}
	if stop < 0 {
		stop = length + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return 0, 0, true
	}
	return start, stop, false
}

// Sorted-set commands

func (s *Store) ZAdd(ctx context.Context, key string, members ...kv.Z) (int64, error) {
	if err := s.guardData("ZADD"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("ZADD", key, kv.KindZSet); err != nil {
		return 0, err
	}
	if s.zsets[key] == nil {
		s.zsets[key] = make(map[string]float64)
		s.kinds[key] = kv.KindZSet
	}
	var added int64
	for _, member := range members {
		if _, ok := s.zsets[key][member.Member]; !ok {
			added++
		}
		s.zsets[key][member.Member] = member.Score
	}
	return added, nil
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if err := s.guardData("ZREM"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("ZREM", key, kv.KindZSet); err != nil {
		return 0, err
	}
	zset := s.zsets[key]
	var removed int64
	for _, member := range members {
		if _, ok := zset[member]; ok {
			delete(zset, member)
			removed++
		}
	}
	if len(zset) == 0 {
		s.deleteLocked(key)
	}
	return removed, nil
}

// ZRange returns members ascending by score, member name breaking ties,
// over an inclusive index range with negative indices allowed.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := s.guardData("ZRANGE"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("ZRANGE", key, kv.KindZSet); err != nil {
		return nil, err
	}
	zset := s.zsets[key]
	ordered := make([]kv.Z, 0, len(zset))
	for member, score := range zset {
		ordered = append(ordered, kv.Z{Member: member, Score: score})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score < ordered[j].Score
		}
		return ordered[i].Member < ordered[j].Member
	})

	start, stop, empty := clampRange(start, stop, int64(len(ordered)))
	if empty {
		return []string{}, nil
	}
	out := make([]string, 0, stop-start+1)
	for _, z := range ordered[start : stop+1] {
		out = append(out, z.Member)
	}
	return out, nil
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	if err := s.guardData("ZCARD"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("ZCARD", key, kv.KindZSet); err != nil {
		return 0, err
	}
	return int64(len(s.zsets[key])), nil
}

func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	if err := s.guardData("ZSCORE"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireKind("ZSCORE", key, kv.KindZSet); err != nil {
		return 0, err
	}
	score, ok := s.zsets[key][member]
	if !ok {
		return 0, s.notFound("ZSCORE", key)
	}
	return score, nil
}
