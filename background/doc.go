/*
Package background implements the coordinator which outlives single pages:
it tracks open tabs, keeps each tab's icon in line with the blocking state
of the tab's domain, and turns the keyboard shortcut into a message to the
active page.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package background

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.background'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.background")
}
