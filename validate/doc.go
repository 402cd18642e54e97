// Package validate applies compiled contracts to message payloads.
//
// Validate is deliberately total: every payload, however broken,
// produces an Outcome. Malformed JSON, type mismatches, nulls, missing
// and unexpected fields, and check failures are all Violations inside
// the outcome; the function itself never returns an error. That keeps
// the routing engine's hot path to two exits, accept and reject, with
// nothing in between.
//
// Violations are collected exhaustively, not fail-fast. A payload with
// a bad type on one field and an out-of-range value on another reports
// both, and the set is ordered most severe first: wrong_type, then
// missing_field, null_value, mismatched_id, the range and check
// failures, unexpected_field, and bad_format last. The sort is stable,
// so equal-severity violations stay in column declaration order and
// validating the same payload twice yields byte-identical reports.
//
// NewRejectReport renders an outcome's violations into the reject topic
// document, carrying the untouched original payload alongside the error
// list.
package validate
