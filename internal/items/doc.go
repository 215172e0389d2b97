// Package items holds the tracked fabrication item model and the in-memory
// repository the rest of the system treats as canonical state.
//
// An Item carries static columns imported from CSV (item type, assembly,
// dimensions, FP code) plus the mutable workflow fields: status, shop and the
// time of the last mutation. Record is the flat 13-field mapping written to
// remote stores and the local cache; its keys match documents created by the
// original web client so existing collections load unchanged.
//
// Repository keeps items in insertion order with unique ids and tracks whether
// it holds edits that have not been persisted yet. Sorting and filtering are
// views computed elsewhere and never change repository order.
package items
