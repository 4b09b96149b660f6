/*
Package page implements the controller which runs for every open page: it
restores rules from the page's backup, injects the compiled stylesheets into
the document, follows rule changes and answers messages addressed to the
page.

A Controller is an explicit state object. It is created when a page is
loaded and closed when the page goes away; there is no process-wide state.
Events of one page (storage changes, messages) are processed strictly one
after the other.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package page

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.page'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.page")
}
