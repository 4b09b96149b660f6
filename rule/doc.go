/*
Package rule defines the data model for element blocking and styling rules.

A rule names one or more class-name fragments, optionally together with an
element ID, and is scoped either to a single host name or to every site
(a global rule). Blocking rules hide matching elements, styling rules attach
custom CSS declarations to them.

Rules are persisted as JSON. Older releases stored bare strings or objects
without a domain field; Normalize upgrades those on read. Legacy shapes are
never written back.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package rule

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.rule'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.rule")
}
