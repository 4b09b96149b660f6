/*
Package store implements the rule store: the in-memory aggregate of all
blocking and styling rules, together with the global switches and UI
settings, synchronized with a primary key-value channel.

Every mutating operation follows the same steps: the in-memory list is
changed, the complete list of the affected kind is written to the primary
channel (last writer wins), a backup snapshot is written for blocking
rules, and listeners are told which storage key changed. If writing to the
primary channel fails, the in-memory effect stays visible and a
rule.PersistenceError is returned.

A Store is safe for concurrent use.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package store

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.store'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.store")
}
