// Package registry keeps the list of saved identifiers under the reserved
// key "tabsaver.identifiers".
//
// The list is one JSON array, so every change is a read-modify-write of the
// whole value. Writes go through KV.CompareAndSwap against the version that
// was read and are retried when another writer got there first. Two
// concurrent Adds therefore both land instead of the second silently
// overwriting the first.
package registry
