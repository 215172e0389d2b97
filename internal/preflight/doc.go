// Package preflight provides readiness checks for the store, the cache and
// the directories chromaflow writes to.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check.
//   - The CLI "chromaflow doctor" command renders the same results.
package preflight
