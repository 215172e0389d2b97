// Package api serves the item workflow over HTTP for a browser UI.
//
// Reads (items, stats, options, state, export) are answered from a
// consistent View of the controller. Mutations are forwarded to the
// controller, which serializes them. Save and import are restricted to the
// administrator named by the identity policy; the caller is identified by
// the X-User-Id header.
//
// GET /api/events upgrades to a websocket and streams controller events as
// JSON so a UI can refetch when the collection changes.
//
// DTOs use camelCase JSON tags for JavaScript consumers.
package api
