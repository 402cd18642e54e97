// Package docstore persists the gateway's configuration documents as
// files: the mapping document in config.json and one contract document
// per <name>.json under a schemas directory.
//
// # Storage discipline
//
// The store deals in bytes and structure, not meaning. Every save first
// passes the embedded JSON meta-schema for its document kind, which
// pins key types, required keys, and rejects unknown keys, so a typoed
// field name fails loudly instead of being dropped by a later decode.
// Semantic rules — subject syntax, dtype tokens, check arguments,
// dangling contract references — belong to the compilers, and the HTTP
// API runs a full reload before asking the store to persist anything.
// Writes are staged to a temp file in the target directory and renamed
// into place.
//
// # Names
//
// Contract names are file stems: they must start with a letter or
// digit and may contain letters, digits, dots, dashes, and
// underscores. Path separators and ".." never validate, so a name can
// never address a file outside the schemas directory.
//
// # Deletion
//
// Deleting a contract also clears every mapping reference to it and
// persists the cleared mapping document. The affected sources keep
// routing as pass-through, the same reading a reload gives an empty
// contract name.
package docstore
