// Package kvtest provides conformance tests for kv.Store implementations.
package kvtest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
)

// Harness bundles a fresh store with, when the implementation supports it,
// the simulated clock driving its TTLs. Tests that need to move time are
// skipped when Clock is nil.
type Harness struct {
	Store kv.Store
	Clock *clock.Simulated
}

// Factory creates a fresh Harness for a single subtest.
type Factory func(t *testing.T) Harness

// scenarioSwitcher is implemented by stores with canned Eval responses.
type scenarioSwitcher interface {
	SetEvalScenario(kv.EvalScenario)
}

// RunConformanceTests runs the full suite against a Store implementation.
func RunConformanceTests(t *testing.T, factory Factory) {
	groups := []struct {
		name string
		run  func(t *testing.T, factory Factory)
	}{
		{"StringOperations", testStringOperations},
		{"KeyOperations", testKeyOperations},
		{"TTLOperations", testTTLOperations},
		{"HashOperations", testHashOperations},
		{"SetOperations", testSetOperations},
		{"ListOperations", testListOperations},
		{"SortedSetOperations", testSortedSetOperations},
		{"TypeMismatch", testTypeMismatch},
		{"MultiExec", testMultiExec},
		{"Eval", testEval},
		{"HealthCheck", testHealthCheck},
	}
	for _, group := range groups {
		t.Run(group.name, func(t *testing.T) {
			group.run(t, factory)
		})
	}
}

func runEach(t *testing.T, factory Factory, tests []struct {
	name string
	test func(t *testing.T, h Harness)
}) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := factory(t)
			defer h.Store.Close()
			tt.test(t, h)
		})
	}
}

func testStringOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"SetGet", testSetGet},
		{"GetMissing", testGetMissing},
		{"AppendStrLen", testAppendStrLen},
		{"IncrDecr", testIncrDecr},
		{"IncrNonNumeric", testIncrNonNumeric},
	})
}

func testSetGet(t *testing.T, h Harness) {
	ctx := context.Background()

	if err := h.Store.Set(ctx, "conf:str", "hello world"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := h.Store.Get(ctx, "conf:str")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func testGetMissing(t *testing.T, h Harness) {
	_, err := h.Store.Get(context.Background(), "conf:missing")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testAppendStrLen(t *testing.T, h Harness) {
	ctx := context.Background()

	n, err := h.Store.Append(ctx, "conf:append", "foo")
	if err != nil || n != 3 {
		t.Fatalf("Append to fresh key: got %d, err %v", n, err)
	}
	n, err = h.Store.Append(ctx, "conf:append", "bar")
	if err != nil || n != 6 {
		t.Fatalf("Append to existing key: got %d, err %v", n, err)
	}
	n, err = h.Store.StrLen(ctx, "conf:append")
	if err != nil || n != 6 {
		t.Fatalf("StrLen: got %d, err %v", n, err)
	}
}

func testIncrDecr(t *testing.T, h Harness) {
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := h.Store.Incr(ctx, "conf:ctr")
		if err != nil || got != want {
			t.Fatalf("Incr #%d: got %d, err %v", want, got, err)
		}
	}
	for want := int64(2); want >= 0; want-- {
		got, err := h.Store.Decr(ctx, "conf:ctr")
		if err != nil || got != want {
			t.Fatalf("Decr to %d: got %d, err %v", want, got, err)
		}
	}
	got, err := h.Store.IncrBy(ctx, "conf:ctr", 5)
	if err != nil || got != 5 {
		t.Fatalf("IncrBy 5: got %d, err %v", got, err)
	}
	got, err = h.Store.DecrBy(ctx, "conf:ctr", 2)
	if err != nil || got != 3 {
		t.Fatalf("DecrBy 2: got %d, err %v", got, err)
	}
}

func testIncrNonNumeric(t *testing.T, h Harness) {
	ctx := context.Background()

	if err := h.Store.Set(ctx, "conf:nan", "not-a-number"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := h.Store.Incr(ctx, "conf:nan"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}

func testKeyOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"Del", testDel},
		{"Exists", testExists},
		{"Type", testType},
		{"KeysGlob", testKeysGlob},
		{"DBSizeFlush", testDBSizeFlush},
	})
}

func testDel(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.Set(ctx, "conf:del1", "v")
	h.Store.Set(ctx, "conf:del2", "v")

	deleted, err := h.Store.Del(ctx, "conf:del1", "conf:absent")
	if err != nil || deleted != 1 {
		t.Fatalf("Del: got %d, err %v", deleted, err)
	}
	if _, err := h.Store.Get(ctx, "conf:del1"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected deleted key to be gone, got %v", err)
	}
	if _, err := h.Store.Get(ctx, "conf:del2"); err != nil {
		t.Fatalf("expected untouched key to remain: %v", err)
	}
}

func testExists(t *testing.T, h Harness) {
	ctx := context.Background()

	count, err := h.Store.Exists(ctx, "conf:exists")
	if err != nil || count != 0 {
		t.Fatalf("Exists on missing key: got %d, err %v", count, err)
	}
	h.Store.Set(ctx, "conf:exists", "v")
	count, err = h.Store.Exists(ctx, "conf:exists")
	if err != nil || count != 1 {
		t.Fatalf("Exists on live key: got %d, err %v", count, err)
	}
}

func testType(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.Set(ctx, "conf:t:str", "v")
	h.Store.HSet(ctx, "conf:t:hash", "f", "v")
	h.Store.SAdd(ctx, "conf:t:set", "m")
	h.Store.RPush(ctx, "conf:t:list", "v")
	h.Store.ZAdd(ctx, "conf:t:zset", kv.Z{Member: "m", Score: 1})

	want := map[string]kv.ValueKind{
		"conf:t:str":    kv.KindString,
		"conf:t:hash":   kv.KindHash,
		"conf:t:set":    kv.KindSet,
		"conf:t:list":   kv.KindList,
		"conf:t:zset":   kv.KindZSet,
		"conf:t:absent": kv.KindNone,
	}
	for key, kind := range want {
		got, err := h.Store.Type(ctx, key)
		if err != nil || got != kind {
			t.Fatalf("Type %q: got %q, err %v", key, got, err)
		}
	}
}

func testKeysGlob(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.Set(ctx, "user:1", "a")
	h.Store.Set(ctx, "user:2", "b")
	h.Store.Set(ctx, "users", "c")
	h.Store.Set(ctx, "session:1", "d")

	keys, err := h.Store.Keys(ctx, "user:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"user:1", "user:2"}) {
		t.Fatalf("Keys(user:*): got %v", keys)
	}

	keys, err = h.Store.Keys(ctx, "user:?")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys(user:?): got %v", keys)
	}

	keys, err = h.Store.Keys(ctx, "users")
	if err != nil || !reflect.DeepEqual(keys, []string{"users"}) {
		t.Fatalf("Keys(users): got %v, err %v", keys, err)
	}
}

func testDBSizeFlush(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.Set(ctx, "conf:a", "1")
	h.Store.HSet(ctx, "conf:b", "f", "v")

	size, err := h.Store.DBSize(ctx)
	if err != nil || size != 2 {
		t.Fatalf("DBSize: got %d, err %v", size, err)
	}
	if err := h.Store.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}
	size, err = h.Store.DBSize(ctx)
	if err != nil || size != 0 {
		t.Fatalf("DBSize after flush: got %d, err %v", size, err)
	}
	keys, err := h.Store.Keys(ctx, "*")
	if err != nil || len(keys) != 0 {
		t.Fatalf("Keys(*) after flush: got %v, err %v", keys, err)
	}
}

func testTTLOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"SetClearsTTL", testSetClearsTTL},
		{"SetExExpires", testSetExExpires},
		{"ExpireExisting", testExpireExisting},
		{"TTLFloorBoundary", testTTLFloorBoundary},
	})
}

func testSetClearsTTL(t *testing.T, h Harness) {
	ctx := context.Background()

	if err := h.Store.SetEx(ctx, "conf:ttl", 30*time.Second, "v"); err != nil {
		t.Fatalf("SetEx failed: %v", err)
	}
	ttl, err := h.Store.TTL(ctx, "conf:ttl")
	if err != nil || ttl <= 0 || ttl > 30 {
		t.Fatalf("TTL after SetEx: got %d, err %v", ttl, err)
	}
	if err := h.Store.Set(ctx, "conf:ttl", "v2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	ttl, err = h.Store.TTL(ctx, "conf:ttl")
	if err != nil || ttl != kv.TTLNoExpiry {
		t.Fatalf("TTL after plain Set: got %d, err %v", ttl, err)
	}
}

func testSetExExpires(t *testing.T, h Harness) {
	if h.Clock == nil {
		t.Skip("implementation does not expose a simulated clock")
	}
	ctx := context.Background()

	if err := h.Store.SetEx(ctx, "conf:exp", 10*time.Second, "v"); err != nil {
		t.Fatalf("SetEx failed: %v", err)
	}
	if got, err := h.Store.Get(ctx, "conf:exp"); err != nil || got != "v" {
		t.Fatalf("Get before expiry: got %q, err %v", got, err)
	}

	h.Clock.Advance(11 * time.Second)

	if _, err := h.Store.Get(ctx, "conf:exp"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected key to expire, got %v", err)
	}
	count, err := h.Store.Exists(ctx, "conf:exp")
	if err != nil || count != 0 {
		t.Fatalf("Exists after expiry: got %d, err %v", count, err)
	}
	ttl, err := h.Store.TTL(ctx, "conf:exp")
	if err != nil || ttl != kv.TTLKeyMissing {
		t.Fatalf("TTL after expiry: got %d, err %v", ttl, err)
	}
}

func testExpireExisting(t *testing.T, h Harness) {
	ctx := context.Background()

	ok, err := h.Store.Expire(ctx, "conf:absent", time.Minute)
	if err != nil || ok {
		t.Fatalf("Expire on missing key: got %v, err %v", ok, err)
	}
	h.Store.Set(ctx, "conf:expire", "v")
	ok, err = h.Store.Expire(ctx, "conf:expire", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Expire on live key: got %v, err %v", ok, err)
	}
	ttl, err := h.Store.TTL(ctx, "conf:expire")
	if err != nil || ttl <= 0 || ttl > 60 {
		t.Fatalf("TTL after Expire: got %d, err %v", ttl, err)
	}
}

// A key with 999ms left is still live and reports 0 whole seconds.
func testTTLFloorBoundary(t *testing.T, h Harness) {
	if h.Clock == nil {
		t.Skip("implementation does not expose a simulated clock")
	}
	ctx := context.Background()

	h.Clock.SetFixed(time.Unix(1_700_000_000, 0))
	if err := h.Store.SetEx(ctx, "conf:floor", 2*time.Second, "v"); err != nil {
		t.Fatalf("SetEx failed: %v", err)
	}
	h.Clock.Advance(1001 * time.Millisecond)

	ttl, err := h.Store.TTL(ctx, "conf:floor")
	if err != nil || ttl != 0 {
		t.Fatalf("TTL with 999ms left: got %d, err %v", ttl, err)
	}
	if got, err := h.Store.Get(ctx, "conf:floor"); err != nil || got != "v" {
		t.Fatalf("key should still be live: got %q, err %v", got, err)
	}

	h.Clock.Advance(time.Second)
	ttl, err = h.Store.TTL(ctx, "conf:floor")
	if err != nil || ttl != kv.TTLKeyMissing {
		t.Fatalf("TTL after expiry: got %d, err %v", ttl, err)
	}
}

func testHashOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"HSetHGet", testHSetHGet},
		{"HGetAll", testHGetAll},
		{"HDel", testHDel},
		{"HInspection", testHInspection},
	})
}

func testHSetHGet(t *testing.T, h Harness) {
	ctx := context.Background()

	n, err := h.Store.HSet(ctx, "conf:hash", "f", "v1")
	if err != nil || n != 1 {
		t.Fatalf("HSet new field: got %d, err %v", n, err)
	}
	n, err = h.Store.HSet(ctx, "conf:hash", "f", "v2")
	if err != nil || n != 0 {
		t.Fatalf("HSet existing field: got %d, err %v", n, err)
	}
	got, err := h.Store.HGet(ctx, "conf:hash", "f")
	if err != nil || got != "v2" {
		t.Fatalf("HGet: got %q, err %v", got, err)
	}
	if _, err := h.Store.HGet(ctx, "conf:hash", "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing field, got %v", err)
	}
}

func testHGetAll(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.HSet(ctx, "conf:hall", "f1", "v1")
	h.Store.HSet(ctx, "conf:hall", "f2", "v2")

	all, err := h.Store.HGetAll(ctx, "conf:hall")
	if err != nil {
		t.Fatalf("HGetAll failed: %v", err)
	}
	want := map[string]string{"f1": "v1", "f2": "v2"}
	if !reflect.DeepEqual(all, want) {
		t.Fatalf("HGetAll: got %v", all)
	}
}

func testHDel(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.HSet(ctx, "conf:hdel", "f1", "v1")
	h.Store.HSet(ctx, "conf:hdel", "f2", "v2")

	n, err := h.Store.HDel(ctx, "conf:hdel", "f1", "missing")
	if err != nil || n != 1 {
		t.Fatalf("HDel: got %d, err %v", n, err)
	}
	if _, err := h.Store.HGet(ctx, "conf:hdel", "f1"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected deleted field to be gone, got %v", err)
	}
}

func testHInspection(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.HSet(ctx, "conf:hins", "a", "1")
	h.Store.HSet(ctx, "conf:hins", "b", "2")

	ok, err := h.Store.HExists(ctx, "conf:hins", "a")
	if err != nil || !ok {
		t.Fatalf("HExists: got %v, err %v", ok, err)
	}
	n, err := h.Store.HLen(ctx, "conf:hins")
	if err != nil || n != 2 {
		t.Fatalf("HLen: got %d, err %v", n, err)
	}
	fields, err := h.Store.HKeys(ctx, "conf:hins")
	if err != nil || len(fields) != 2 {
		t.Fatalf("HKeys: got %v, err %v", fields, err)
	}
	values, err := h.Store.HVals(ctx, "conf:hins")
	if err != nil || len(values) != 2 {
		t.Fatalf("HVals: got %v, err %v", values, err)
	}
}

func testSetOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"SAddCollapsesDuplicates", testSAddCollapses},
		{"SRem", testSRem},
		{"SIsMember", testSIsMember},
	})
}

func testSAddCollapses(t *testing.T, h Harness) {
	ctx := context.Background()

	added, err := h.Store.SAdd(ctx, "conf:set", "a", "a", "b")
	if err != nil || added != 2 {
		t.Fatalf("SAdd: got %d, err %v", added, err)
	}
	n, err := h.Store.SCard(ctx, "conf:set")
	if err != nil || n != 2 {
		t.Fatalf("SCard: got %d, err %v", n, err)
	}
}

func testSRem(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.SAdd(ctx, "conf:srem", "a", "b")
	removed, err := h.Store.SRem(ctx, "conf:srem", "a", "missing")
	if err != nil || removed != 1 {
		t.Fatalf("SRem: got %d, err %v", removed, err)
	}
	members, err := h.Store.SMembers(ctx, "conf:srem")
	if err != nil || !reflect.DeepEqual(members, []string{"b"}) {
		t.Fatalf("SMembers: got %v, err %v", members, err)
	}
}

func testSIsMember(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.SAdd(ctx, "conf:sism", "a")
	ok, err := h.Store.SIsMember(ctx, "conf:sism", "a")
	if err != nil || !ok {
		t.Fatalf("SIsMember(a): got %v, err %v", ok, err)
	}
	ok, err = h.Store.SIsMember(ctx, "conf:sism", "b")
	if err != nil || ok {
		t.Fatalf("SIsMember(b): got %v, err %v", ok, err)
	}
}

func testListOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"LPushOrder", testLPushOrder},
		{"PushPop", testPushPop},
		{"LRange", testLRange},
	})
}

// LPush prepends each element in call order: LPUSH k a b leaves [b a].
func testLPushOrder(t *testing.T, h Harness) {
	ctx := context.Background()

	n, err := h.Store.LPush(ctx, "conf:lpush", "a", "b")
	if err != nil || n != 2 {
		t.Fatalf("LPush: got %d, err %v", n, err)
	}
	items, err := h.Store.LRange(ctx, "conf:lpush", 0, -1)
	if err != nil || !reflect.DeepEqual(items, []string{"b", "a"}) {
		t.Fatalf("LRange after LPush: got %v, err %v", items, err)
	}
}

func testPushPop(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.RPush(ctx, "conf:list", "v1", "v2", "v3")

	n, err := h.Store.LLen(ctx, "conf:list")
	if err != nil || n != 3 {
		t.Fatalf("LLen: got %d, err %v", n, err)
	}
	left, err := h.Store.LPop(ctx, "conf:list")
	if err != nil || left != "v1" {
		t.Fatalf("LPop: got %q, err %v", left, err)
	}
	right, err := h.Store.RPop(ctx, "conf:list")
	if err != nil || right != "v3" {
		t.Fatalf("RPop: got %q, err %v", right, err)
	}
	h.Store.LPop(ctx, "conf:list")
	if _, err := h.Store.LPop(ctx, "conf:list"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound popping empty list, got %v", err)
	}
}

func testLRange(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.RPush(ctx, "conf:lrange", "v1", "v2", "v3")

	items, err := h.Store.LRange(ctx, "conf:lrange", 0, 1)
	if err != nil || !reflect.DeepEqual(items, []string{"v1", "v2"}) {
		t.Fatalf("LRange(0,1): got %v, err %v", items, err)
	}
	items, err = h.Store.LRange(ctx, "conf:lrange", -2, -1)
	if err != nil || !reflect.DeepEqual(items, []string{"v2", "v3"}) {
		t.Fatalf("LRange(-2,-1): got %v, err %v", items, err)
	}
	items, err = h.Store.LRange(ctx, "conf:lrange", 5, 10)
	if err != nil || len(items) != 0 {
		t.Fatalf("LRange out of bounds: got %v, err %v", items, err)
	}
}

func testSortedSetOperations(t *testing.T, factory Factory) {
	runEach(t, factory, []struct {
		name string
		test func(t *testing.T, h Harness)
	}{
		{"ZAddZScore", testZAddZScore},
		{"ZRangeOrder", testZRangeOrder},
		{"ZRem", testZRem},
	})
}

func testZAddZScore(t *testing.T, h Harness) {
	ctx := context.Background()

	added, err := h.Store.ZAdd(ctx, "conf:zset", kv.Z{Member: "m1", Score: 1.5}, kv.Z{Member: "m2", Score: 2})
	if err != nil || added != 2 {
		t.Fatalf("ZAdd: got %d, err %v", added, err)
	}
	// Re-adding an existing member updates its score without counting.
	added, err = h.Store.ZAdd(ctx, "conf:zset", kv.Z{Member: "m1", Score: 9})
	if err != nil || added != 0 {
		t.Fatalf("ZAdd existing member: got %d, err %v", added, err)
	}
	score, err := h.Store.ZScore(ctx, "conf:zset", "m1")
	if err != nil || score != 9 {
		t.Fatalf("ZScore: got %v, err %v", score, err)
	}
	n, err := h.Store.ZCard(ctx, "conf:zset")
	if err != nil || n != 2 {
		t.Fatalf("ZCard: got %d, err %v", n, err)
	}
}

func testZRangeOrder(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.ZAdd(ctx, "conf:zrange",
		kv.Z{Member: "c", Score: 3},
		kv.Z{Member: "a", Score: 1},
		kv.Z{Member: "b", Score: 2},
		kv.Z{Member: "b2", Score: 2},
	)

	members, err := h.Store.ZRange(ctx, "conf:zrange", 0, -1)
	if err != nil || !reflect.DeepEqual(members, []string{"a", "b", "b2", "c"}) {
		t.Fatalf("ZRange(0,-1): got %v, err %v", members, err)
	}
	members, err = h.Store.ZRange(ctx, "conf:zrange", 1, 2)
	if err != nil || !reflect.DeepEqual(members, []string{"b", "b2"}) {
		t.Fatalf("ZRange(1,2): got %v, err %v", members, err)
	}
}

func testZRem(t *testing.T, h Harness) {
	ctx := context.Background()

	h.Store.ZAdd(ctx, "conf:zrem", kv.Z{Member: "m1", Score: 1}, kv.Z{Member: "m2", Score: 2})
	removed, err := h.Store.ZRem(ctx, "conf:zrem", "m1", "missing")
	if err != nil || removed != 1 {
		t.Fatalf("ZRem: got %d, err %v", removed, err)
	}
	if _, err := h.Store.ZScore(ctx, "conf:zrem", "m1"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected removed member to be gone, got %v", err)
	}
}

func testTypeMismatch(t *testing.T, factory Factory) {
	h := factory(t)
	defer h.Store.Close()
	ctx := context.Background()

	h.Store.Set(ctx, "conf:mismatch", "v")

	if _, err := h.Store.SAdd(ctx, "conf:mismatch", "m"); !errors.Is(err, kv.ErrWrongType) {
		t.Fatalf("SAdd against string: got %v", err)
	}
	if _, err := h.Store.HGet(ctx, "conf:mismatch", "f"); !errors.Is(err, kv.ErrWrongType) {
		t.Fatalf("HGet against string: got %v", err)
	}
	if _, err := h.Store.LPush(ctx, "conf:mismatch", "v"); !errors.Is(err, kv.ErrWrongType) {
		t.Fatalf("LPush against string: got %v", err)
	}

	h.Store.HSet(ctx, "conf:mismatch2", "f", "v")
	if _, err := h.Store.Incr(ctx, "conf:mismatch2"); !errors.Is(err, kv.ErrWrongType) {
		t.Fatalf("Incr against hash: got %v", err)
	}

	// Set overwrites any kind, matching Redis.
	if err := h.Store.Set(ctx, "conf:mismatch2", "fresh"); err != nil {
		t.Fatalf("Set over hash should succeed: %v", err)
	}
}

func testMultiExec(t *testing.T, factory Factory) {
	h := factory(t)
	defer h.Store.Close()
	ctx := context.Background()

	results, err := h.Store.Multi().
		Set("conf:multi", "v").
		Incr("conf:multi-ctr").
		SAdd("conf:multi-set", "a", "b").
		Exec(ctx)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if got, err := h.Store.Get(ctx, "conf:multi"); err != nil || got != "v" {
		t.Fatalf("Set not applied: got %q, err %v", got, err)
	}

	pipe := h.Store.Multi().Set("conf:discarded", "v")
	pipe.Discard()
	results, err = pipe.Exec(ctx)
	if err != nil || len(results) != 0 {
		t.Fatalf("Exec after Discard: got %v, err %v", results, err)
	}
	if _, err := h.Store.Get(ctx, "conf:discarded"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("discarded command must not apply, got %v", err)
	}
}

func testEval(t *testing.T, factory Factory) {
	h := factory(t)
	defer h.Store.Close()
	ctx := context.Background()

	switcher, ok := h.Store.(scenarioSwitcher)
	if !ok {
		t.Skip("implementation does not support canned eval scenarios")
	}

	tuple, err := h.Store.Eval(ctx, "return rate_limit()", []string{"rl:conf"}, "5", "60")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(tuple) != 4 || tuple[0] != 1 || tuple[1] != 5 || tuple[2] != 4 {
		t.Fatalf("allowed tuple: got %v", tuple)
	}

	switcher.SetEvalScenario(kv.EvalExceeded)
	tuple, err = h.Store.Eval(ctx, "return rate_limit()", []string{"rl:conf"}, "5", "60")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(tuple) != 4 || tuple[0] != 0 || tuple[2] != 0 {
		t.Fatalf("exceeded tuple: got %v", tuple)
	}
}

func testHealthCheck(t *testing.T, factory Factory) {
	h := factory(t)
	defer h.Store.Close()

	if err := h.Store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed for healthy store: %v", err)
	}
}
