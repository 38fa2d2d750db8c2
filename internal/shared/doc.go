// Package shared maintains, for a single session, the front-end objects that
// represent shareable nodes: nodes that appear under more than one parent.
//
// Terminology:
//   - shareable node: a node that may be linked under several parents.
//   - canonical appearance: the object for the node at its primary parent,
//     as resolved by the Store.
//   - shared node: a SharedNode representing the node under one of its
//     additional parents.
//
// Cache maps a shareable node key to its SharedSet. A SharedSet holds the
// canonical appearance and memoizes one SharedNode per additional parent, so
// repeated lookups of the same appearance always yield the same pointer.
//
// Structural changes flow in through Cache.Removed and Cache.Destroyed.
// Removing the canonical appearance never patches a SharedSet: the stale
// object is released from the Store, a fresh canonical object is resolved and
// a brand-new SharedSet replaces the old one in a single publish. SharedNode
// values handed out by the replaced set are orphaned and are never returned
// again.
//
// Everything here is safe for concurrent use. No goroutines are started; all
// blocking happens inside Store calls.
package shared
