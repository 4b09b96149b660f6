/*
Package stylesheet compiles the active subset of a rule list into CSS text.

Blocking rules compile into a single rule hiding all matching elements:

    [class*="ad"], [class~="promo"][class~="box"] { display: none !important; }

Styling rules compile into one block per rule, every declaration marked
important. As page authors frequently set inline styles which would still
win against an important page-level declaration set by them, type Inliner
is the side channel that strips conflicting inline properties from live
elements, backing up the original style attribute first.

Compile never fails. A rule which does not translate into valid CSS is
skipped and traced.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package stylesheet

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.stylesheet'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.stylesheet")
}
