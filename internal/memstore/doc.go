// Package memstore is a volatile, in-memory content repository used to back
// sessions and their shared node caches.
//
// A Repository holds workspaces of nodes. Each node has one primary parent
// and, when flagged shareable, any number of additional parents added with
// Share. Unlink promotes the oldest additional parent in the node's own
// workspace when the primary edge goes away; a node left without a parent is
// destroyed together with its subtree.
//
// A Session is one client's view of a workspace. It implements shared.Store,
// keeps one object per node key until the object is released, and owns the
// shared.Cache that gives every appearance of a shareable node a stable
// object. Remove and Destroy forward the resulting Change to that cache.
//
// LoadFixture builds a Repository from a YAML description:
//
//	workspaces:
//	  - name: default
//	    nodes:
//	      - path: /a
//	      - path: /a/doc
//	        id: doc
//	        shareable: true
//	      - path: /b
//	    shares:
//	      - node: doc
//	        parent: /b
//	        name: doc-link
package memstore
