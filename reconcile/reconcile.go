package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/npillmayer/blocker/rule"
	"github.com/tidwall/gjson"
)

// Snapshot is the backup of the blocking rules in scope of one domain.
type Snapshot struct {
	Domain         string
	BlockedClasses []rule.Rule
	Timestamp      time.Time
}

type wireSnapshot struct {
	Domain         string      `json:"domain"`
	BlockedClasses []rule.Rule `json:"blockedClasses"`
	Timestamp      int64       `json:"timestamp"` // milliseconds since the epoch
}

// MarshalJSON writes {domain, blockedClasses, timestamp}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		Domain:         s.Domain,
		BlockedClasses: s.BlockedClasses,
		Timestamp:      s.Timestamp.UnixMilli(),
	}
	if w.BlockedClasses == nil {
		w.BlockedClasses = []rule.Rule{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads a snapshot. The rule list is normalized; a missing or
// malformed list yields an empty one.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("backup snapshot: invalid JSON")
	}
	v := gjson.ParseBytes(data)
	if !v.IsObject() {
		return fmt.Errorf("backup snapshot: not an object")
	}
	s.Domain = v.Get("domain").String()
	s.BlockedClasses = rule.Normalize([]byte(v.Get("blockedClasses").Raw), rule.Blocking)
	s.Timestamp = time.UnixMilli(v.Get("timestamp").Int())
	return nil
}

// Reconcile appends every backup rule whose (spec, domain) is missing from
// primary. changed is true iff at least one rule was appended. primary is
// never modified.
func Reconcile(primary []rule.Rule, backup Snapshot) (merged []rule.Rule, changed bool) {
	merged = rule.Clone(primary)
	for _, r := range backup.BlockedClasses {
		if contains(merged, r.Key()) {
			continue
		}
		r.Kind = rule.Blocking
		merged = append(merged, r)
		changed = true
		tracer().Debugf("reconcile: restoring %v from backup", r)
	}
	return merged, changed
}

func contains(rs []rule.Rule, key rule.Key) bool {
	for _, r := range rs {
		if r.Key().Matches(key) {
			return true
		}
	}
	return false
}
