// Package hub is a thin client for the Heatmiser neoHub local API.
//
// The hub listens on TCP port 4242 and accepts one JSON command per
// connection, terminated by a NUL byte; it answers in the same framing.
// Only the handful of commands the bridge needs are wrapped:
//
//	{"INFO":0}                    device and plug state
//	{"TIMER_ON":"Hall Plug"}      plug control
//	{"FROST_ON":"Kitchen"}        frost protection
//	{"ZONE_TITLE":["old","new"]}  zone rename
//
// Mutating commands return the decoded reply; use Accepted to classify it.
// Transport failures are retried inside the client, so callers never retry.
package hub
