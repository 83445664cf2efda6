// Package download places remote files in the live tree of a SyncRoot.
//
// Files with a name known before fetching are first checked against the
// shadow copy of the previous run and moved back when unchanged. Everything
// else is fetched in full and named by ResolveFilename.
package download
