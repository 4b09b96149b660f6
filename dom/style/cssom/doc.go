/*
Package cssom abstracts stylesheets as seen by blocker.

Blocker writes CSS, it does not style documents itself: the browser engine
applies the injected stylesheets. The interfaces of this package exist to
read injected (or page-authored) stylesheets back, e.g. to verify which
selectors a page currently hides, or to inspect the declarations a styling
rule contributes. A concrete implementation on top of douceur may be found
in sub-package douceuradapter.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package cssom

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'blocker.dom'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.dom")
}
