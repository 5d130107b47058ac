// Package memory holds map-backed implementations of the inventory
// repositories. Every read and write copies, so callers never share state
// with the store. Execute on a Store rolls back by restoring a snapshot
// taken before the call; it is meant for tests and single-process development.
package memory
