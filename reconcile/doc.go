/*
Package reconcile keeps the per-domain backup channel and the primary store
consistent.

Whenever blocking rules change, a snapshot of the rules in scope of a domain
is written to the backup channel under prefix+domain. When a page loads,
the snapshot for its domain is merged back into the primary store: rules
missing from the primary store are appended, nothing is ever removed or
modified. Merging is idempotent.

The backup channel is best-effort. Failures to read or write it are traced
and otherwise ignored.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package reconcile

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.reconcile'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.reconcile")
}
