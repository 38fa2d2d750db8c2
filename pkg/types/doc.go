// Package types defines the identity and path values shared by the cache,
// the in-memory repository and the CLI. They are plain comparable values
// and carry no behaviour that depends on a session or a store.
package types
