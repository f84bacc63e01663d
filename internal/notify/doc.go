// Package notify turns storage change events into view refreshes.
//
// A Notifier only reacts to changes in its store's namespace whose key set
// includes the registry key; everything else is ignored. Changes written by
// other processes on the same store reach it the same way as local ones.
package notify
