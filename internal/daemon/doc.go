// Package daemon runs the long-lived chromaflow process.
//
// It loads the collection through the sync bridge, seeds empty installations
// when asked to, and then runs the application controller, the remote change
// subscription and the HTTP API under one errgroup. A flock on the data
// directory keeps a second daemon from sharing the same store and cache.
package daemon
