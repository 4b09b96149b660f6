/*
Package messaging carries request/response messages between the contexts of
the blocker: the background coordinator, the per-page controllers and the
UI surfaces.

Every message is tagged with an action from a closed set. Every handler
answers with a Response; a message with an unknown action is answered with
{success: false, error: "Unknown action"}.

Targets which cannot be reached yield a rule.MessagingUnavailableError.
Callers treat this as non-fatal, as the persisted state is picked up by the
target on its next load or change event anyway.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package messaging

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.messaging'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.messaging")
}
