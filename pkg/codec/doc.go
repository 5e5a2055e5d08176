// Package codec reads and writes the fixed-layout base record that sits at
// offset 0 of every state buffer, and binds a buffer's address to its owner.
//
// # Record Format
//
// The base record is BaseLen (76) bytes, little-endian, with explicit
// reserved bytes so that the persisted layout never depends on in-memory
// struct layout:
//
//	[Flag(1)][Owner(32)][State(1)][Payload(32)][Reserved(2)][UpdateCount(4)][Bump(1)][Reserved(3)]
//
// Fields:
//   - Flag: nonzero once the record has been initialized
//   - Owner: 32-byte identity of the data owner
//   - State: lifecycle code, 0 Uninitialized, 1 Initialized, 2 Updated
//   - Payload: 32 raw bytes
//   - UpdateCount: 32-bit unsigned counter
//   - Bump: the bump that makes the buffer's address derivable from Owner
//
// Flag is nonzero exactly when State is not Uninitialized. Decode rejects
// records that break this rule or carry an unknown state code.
//
// # Usage
//
//	if err := codec.Initialize(acct.Data, owner, payload, bump); err != nil {
//	    return err
//	}
//
//	rec, err := codec.Decode(acct.Data)
//	if err != nil {
//	    return err
//	}
//
// # Address Binding
//
// A state buffer lives at an address derived from the seeds
// ["mystate", owner, [bump]] under a namespace. Binder holds the namespace
// and a Deriver, validates observed addresses and finds the canonical bump
// for an owner.
//
//	binder := codec.NewBinder(codec.SHA256Deriver{}, namespace)
//	addr, bump, err := binder.Find(owner)
//
// # Thread Safety
//
// All functions are pure over the slice they are given. Binder is immutable
// and safe for concurrent use; buffers are not.
package codec
