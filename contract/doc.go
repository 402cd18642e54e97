// Package contract defines data contract documents and their compiled
// form.
//
// A contract document is a JSON description of the fields a source is
// expected to publish: a dtype, nullability and uniqueness flags, an
// optional per-column coerce override, and an ordered list of value
// checks. Documents are authored by hand (or through the HTTP API), so
// everything about them is untrusted until compiled.
//
// Compile is the trust boundary. It resolves dtype tokens, parses and
// validates every check argument, compiles regular expressions, and
// verifies each check kind is applicable to its column's type. A
// *Contract that came out of Compile cannot fail structurally during
// validation; the hot path never parses JSON arguments or compiles
// patterns.
//
// Order is preserved everywhere. Columns evaluate in document order,
// checks evaluate in declaration order, and MarshalJSON writes columns
// back in the same order they were read, so two loads of the same
// document behave identically.
//
// A Store holds the compiled contracts for one configuration snapshot.
// It is immutable: reloads build a fresh Store and swap it in whole, so
// a half-updated contract set is never observable.
package contract
