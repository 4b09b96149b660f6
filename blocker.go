/*
Package blocker hides or restyles elements of web pages by CSS class-name
fragments and element IDs, with rules scoped to single host names or applied
on every site.

The rule model lives in package rule, selector generation in matcher, the
rule store in store and CSS generation in stylesheet. Package page is the
per-page controller, package background the coordinator across pages.
Persistence channels are found below storage.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package blocker

// Version is written to export files.
const Version = "2.0"
