// Package kvcache is a typed cache layer over interchangeable byte stores.
//
// Components:
//   - adapter.Adapter: byte store with TTLs and integer counters
//     (ristretto, bigcache, bolt, null, etcd, redis).
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//   - Manager[V]: owns one adapter and a codec, hands out Items.
//   - Item[V]: one key, read once when created, changed locally, written on Save.
//   - Collection[V]: Items by key with a bulk Save.
//
// Item lifecycle:
//
//	it, _ := m.GetItem(ctx, "user:1") // one Get against the adapter
//	u := it.Get()                     // local snapshot, no I/O
//	u.Visits++
//	it.Set(u, time.Hour)              // Dirty, still no I/O
//	err := it.Save(ctx)               // one Set; Clean on success
//
// A Clean item never writes. Writes are best-effort: nothing is retried, and
// every failure is returned, logged and passed to Hooks.
package kvcache
