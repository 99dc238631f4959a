// Package command implements one-shot control of the hub.
//
// A command token plus its positional arguments resolves to exactly one
// hub operation; the reply is normalised to an exit code (0 success,
// 1 failure). Arguments are the words after the token, so in
//
//	neobridge switch_on "F1 Hall Plug"
//
// args[0] is "F1 Hall Plug".
package command
