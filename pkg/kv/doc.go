// Package kv defines a Redis-compatible key-value store abstraction for
// deterministic test environments, together with the registry that hands
// out isolated named instances.
//
// The Store interface covers strings, hashes, sets, lists, sorted sets and
// counters with TTL support, plus queued MULTI/EXEC pipelines, a canned
// EVAL surface and a simulated connection lifecycle. The in-memory engine
// in pkg/kv/memory implements it with an injectable clock and fault
// injection; pkg/kv/redis adapts a real server to the same interface so
// the engine's semantics can be cross-checked.
//
// Example usage:
//
//	reg := kv.NewRegistry(logger)
//	reg.Register("sessions", memory.Factory("sessions"), nil)
//
//	store, err := reg.Get("sessions", nil, "suite-a")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := store.Set(ctx, "user:123", "john"); err != nil {
//		log.Fatal(err)
//	}
//
//	value, err := store.Get(ctx, "user:123")
//	if err != nil {
//		if errors.Is(err, kv.ErrNotFound) {
//			log.Println("Key not found")
//		} else {
//			log.Fatal(err)
//		}
//	}
//
// Instances from different namespaces never share keyspaces, clocks or
// fault modes; Registry.Reset restores every instance to pristine state at
// a test boundary.
package kv
