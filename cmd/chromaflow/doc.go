// Package main hosts the chromaflow CLI entrypoint and command graph.
//
// Commands resolve configuration once, open the configured store through
// the sync bridge, and run the same reducers the daemon uses. Mutating
// commands load the collection, apply one change and save it back, so they
// require the administrator identity.
package main
