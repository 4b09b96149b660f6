/*
Package dom provides the page-side document model blocker operates on.

Overview

The page a content controller runs in is modelled as an HTML parse tree
(golang.org/x/net/html). Elements are wrapped into type Element, which
exposes the class list, the ID and attribute manipulation. Selector specs
are evaluated with cascadia (see package matcher), so the same selector text
which ends up in an injected stylesheet decides which elements a styling
rule touches.

Injected stylesheets live in <style> elements in the document head,
identified by their ID.

Status

Same-document only: shadow roots and iframes are not traversed.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dom

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer will return a tracer. We are tracing to 'blocker.dom'
func tracer() tracing.Trace {
	return tracing.Select("blocker.dom")
}
