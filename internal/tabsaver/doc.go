// Package tabsaver saves the currently open tabs under an identifier,
// reopens a saved set as a new focused window, and deletes saved sets.
//
// # Operations
//
//	svc := tabsaver.NewService(kv, tabs, tabsaver.Options{})
//	res, err := svc.Capture(ctx, "  work ")   // stores under "work"
//	ok, err := svc.Restore(ctx, "work")        // ok=false when nothing stored
//	err = svc.Delete(ctx, "work")
//
// Capture trims its input and rejects it with *ValidationError before any
// storage access when it is empty, longer than 63 characters, or equal to
// the registry key. Private documents are never stored. When no
// non-private documents are open Capture writes nothing and returns
// CaptureResult{Saved: false} with a nil error.
//
// # Consistency
//
// Capture writes the collection and then the registry entry; Delete removes
// the registry entry and then the collection. The store has no multi-key
// transaction across the registry update, so a process that dies between
// the two steps leaves them disagreeing. Nothing repairs that.
//
// Every operation runs under Options.Timeout, and storage or browser
// failures are returned wrapped rather than dropped.
package tabsaver
