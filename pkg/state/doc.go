// Package state models the locals of a page and persists them between
// requests.
//
// Locals are the client-visible UI state of a logical page: input values
// bound by events and anything handlers choose to remember. Every local is
// a Value, a tagged union of null, string, number, bool, list and map, so
// the state format stays well defined and language portable.
//
// # Codecs
//
// A Codec turns Locals into an opaque token sent to the client as
// "_state_" and decodes the "_state" field of the next request:
//
//   - SignedCodec keeps the state on the client, signed with HMAC-SHA256.
//   - StoreCodec keeps the state on the server in a Store and hands the
//     client a random token.
//
// # Stores
//
// MemoryStore is an in-process store with periodic cleanup. RedisStore
// shares state between servers:
//
//	store := state.NewRedisStore("localhost:6379", "", 0)
//	codec := state.NewStoreCodec(store, 30*time.Minute)
package state
