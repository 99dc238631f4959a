// Package snapshot holds the normalised representation of one poll cycle's
// device readings and its wire encoding.
//
// A Snapshot maps each device name to a one-element slice holding that
// device's reading. The one-element shape is what existing subscribers of
// heating/state parse, so it is kept even though a plain object would do:
//
//	{"Kitchen":[{"id":1,"temperature":19.5,"heating":true,"frost":false}]}
//
// Snapshots are built fresh every cycle and never reused.
package snapshot
