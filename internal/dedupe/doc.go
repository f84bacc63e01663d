// Package dedupe provides a time-bounded set of recently seen keys, used to
// deliver each storage change at most once per process.
package dedupe
