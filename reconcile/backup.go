package reconcile

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/blocker/store"
)

// DefaultPrefix is prepended to the domain to form a backup key.
const DefaultPrefix = "element-blocker-"

// Backup reads and writes snapshots on a backup channel. It implements
// store.BackupWriter.
type Backup struct {
	port   storage.Store
	prefix string
	now    func() time.Time
}

var _ store.BackupWriter = (*Backup)(nil)

// NewBackup creates a backup on a channel. An empty prefix selects
// DefaultPrefix.
func NewBackup(port storage.Store, prefix string) *Backup {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Backup{port: port, prefix: prefix, now: time.Now}
}

// Key returns the backup key for domain.
func (b *Backup) Key(domain string) string {
	return b.prefix + domain
}

// Snapshot builds the snapshot for domain: all rules which are global or
// belong to domain, enabled or not.
func (b *Backup) Snapshot(domain string, rs []rule.Rule) Snapshot {
	snap := Snapshot{Domain: domain, BlockedClasses: []rule.Rule{}, Timestamp: b.now()}
	for _, r := range rs {
		if r.Scoped(domain) {
			snap.BlockedClasses = append(snap.BlockedClasses, r)
		}
	}
	return snap
}

// WriteBackup stores the snapshot for domain. Failures are traced only.
func (b *Backup) WriteBackup(ctx context.Context, domain string, rs []rule.Rule) {
	snap := b.Snapshot(domain, rs)
	raw, err := json.Marshal(snap)
	if err != nil {
		tracer().Errorf("reconcile: cannot encode backup for %q: %v", domain, err)
		return
	}
	if _, err := b.port.Set(ctx, b.Key(domain), raw).Get(); err != nil {
		tracer().Errorf("reconcile: cannot write backup for %q: %v", domain, err)
		return
	}
	tracer().Debugf("reconcile: backed up %d rule(s) for %q", len(snap.BlockedClasses), domain)
}

// Load reads the snapshot for domain. A missing, unreadable or malformed
// snapshot is Nothing.
func (b *Backup) Load(ctx context.Context, domain string) maybe.Maybe[Snapshot] {
	v, err := b.port.Get(ctx, b.Key(domain)).Get()
	if err != nil {
		tracer().Errorf("reconcile: cannot read backup for %q: %v", domain, err)
		return maybe.Nothing[Snapshot]()
	}
	return maybe.AndThen(func(raw []byte) maybe.Maybe[Snapshot] {
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			tracer().Errorf("reconcile: dropping malformed backup for %q: %v", domain, err)
			return maybe.Nothing[Snapshot]()
		}
		return maybe.Just(snap)
	}, v)
}

// Domains lists the domains a backup exists for.
func (b *Backup) Domains(ctx context.Context) []string {
	ds, err := result.Map(b.port.Keys(ctx, b.prefix), func(keys []string) []string {
		ds := make([]string, 0, len(keys))
		for _, k := range keys {
			ds = append(ds, strings.TrimPrefix(k, b.prefix))
		}
		return ds
	}).Get()
	if err != nil {
		tracer().Errorf("reconcile: cannot list backups: %v", err)
		return nil
	}
	return ds
}

// Restore merges the snapshot for domain into the blocking rules of st and
// persists the result if anything was appended. It reports whether st
// changed. Only a failure to write the primary store is returned.
func Restore(ctx context.Context, st *store.Store, b *Backup, domain string) (bool, error) {
	snap, ok := b.Load(ctx, domain).Get()
	if !ok {
		return false, nil
	}
	merged, changed := Reconcile(st.Rules(rule.Blocking), snap)
	if !changed {
		tracer().Debugf("reconcile: backup for %q holds nothing new", domain)
		return false, nil
	}
	tracer().Infof("reconcile: restored %d rule(s) from backup for %q",
		len(merged)-len(st.Rules(rule.Blocking)), domain)
	return true, st.Replace(ctx, rule.Blocking, merged)
}
