/*
Package matcher translates selector specs into CSS selectors and decides
about rule overlap.

A selector spec is a whitespace-separated list of tokens. A token starting
with '#' names an element ID, every other token is a class-name fragment.
The translation follows three cases:

    "ad"            =>  [class*="ad"]                  substring match
    "ad banner"     =>  [class~="ad"][class~="banner"]  whole-word, AND
    "#top ad"       =>  #top[class~="ad"]               ID plus whole-word classes

Substring matching for a single bare fragment is deliberately loose: it
catches hashed or suffixed class names as emitted by bundlers
("ad" matches "ad_x7f3a" and "header-ad").

Selectors may be evaluated against an x/net/html tree with cascadia (see
Compile), or against any value implementing Element (see Matches). Both
agree for well-formed class attributes.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package matcher

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.matcher'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.matcher")
}
