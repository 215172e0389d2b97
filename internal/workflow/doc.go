// Package workflow defines the fabrication stages an item moves through and
// the rules for advancing between them.
//
// The sequence is fixed: Unreceived, Received (Inbound), Blasting, Shop
// Sorting, Painting, Packing, Awaiting Shipment, Shipped. Statuses are
// ordinal values so sorting and advancement use their position, while
// String returns the label persisted in records and CSV exports.
//
// Blasting and Shop Sorting are branch points: moving on to Painting needs a
// shop. The package only answers whether a shop is required; collecting one
// from the operator belongs to the caller.
package workflow
