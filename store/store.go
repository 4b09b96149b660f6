package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/npillmayer/blocker/matcher"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage"
)

// ErrNothingToToggle is returned by ToggleDomain if no rule is in scope.
var ErrNothingToToggle = errors.New("no rules to toggle for domain")

// BackupWriter receives a snapshot whenever blocking rules change.
// Failures are the writer's business; they never reach the caller of a
// store operation.
type BackupWriter interface {
	WriteBackup(ctx context.Context, domain string, rules []rule.Rule)
}

// Event tells listeners which storage key has changed.
type Event struct {
	Key string
}

// Option configures a Store.
type Option func(*Store)

// WithBackup installs a backup writer for blocking rules.
func WithBackup(w BackupWriter) Option {
	return func(s *Store) { s.backup = w }
}

// WithPageDomain sets the host name of the page the store serves. Changes
// of global blocking rules are backed up for this domain. Without a page
// domain, global rules are not backed up.
func WithPageDomain(domain string) Option {
	return func(s *Store) { s.pageDomain = domain }
}

// Store is the rule store.
type Store struct {
	mu         sync.Mutex
	primary    storage.Store
	backup     BackupWriter
	pageDomain string
	rules      [2][]rule.Rule // indexed by rule.Kind
	settings   Settings
	listeners  listeners
}

// New creates a store on top of a primary channel. Call Load to read the
// persisted state.
func New(primary storage.Store, opts ...Option) *Store {
	s := &Store{
		primary:  primary,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, k := range kinds {
		s.rules[k] = []rule.Rule{}
	}
	return s
}

var kinds = [...]rule.Kind{rule.Blocking, rule.Styling}

// Load reads rule lists and settings from the primary channel. Absent keys
// take their defaults. A failing read leaves the default in place; the first
// such error is returned after all keys have been tried.
func (s *Store) Load(ctx context.Context) error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, k := range kinds {
		raw, err := s.read(ctx, k.StorageKey())
		note(err)
		list := rule.Normalize(raw, k)
		s.mu.Lock()
		s.rules[k] = list
		s.mu.Unlock()
	}
	for _, key := range settingKeys {
		raw, err := s.read(ctx, key)
		note(err)
		if raw != nil {
			s.mu.Lock()
			s.settings.apply(key, raw)
			s.mu.Unlock()
		}
	}
	if firstErr != nil {
		tracer().Errorf("store: load incomplete: %v", firstErr)
	} else {
		tracer().Debugf("store: loaded %d blocking, %d styling rules",
			len(s.rules[rule.Blocking]), len(s.rules[rule.Styling]))
	}
	return firstErr
}

// read returns nil for an absent key.
func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	got := result.MapErr(s.primary.Get(ctx, key), func(err error) error {
		return rule.Persistence("read "+key, err)
	})
	var v maybe.Maybe[[]byte]
	var err error
	switch m := got.Match(); m {
	case m.Ok(&v):
		return v.WithDefault(nil), nil
	case m.Err(&err):
		return nil, err
	}
	return nil, nil
}

// --- Mutations -------------------------------------------------------------

// Add appends a new enabled rule. The spec is cleaned first; an empty spec
// is an InvalidSpecError, a spec conflicting with an existing rule of the
// same kind on the same domain a DuplicateError. Label is optional.
func (s *Store) Add(ctx context.Context, spec, domain string, kind rule.Kind, label maybe.Maybe[string]) error {
	r, err := s.prepare(spec, domain, kind, label)
	if err != nil {
		return err
	}
	return s.insert(ctx, r)
}

// AddStyling adds a styling rule carrying CSS declarations.
func (s *Store) AddStyling(ctx context.Context, spec, domain, css string, label maybe.Maybe[string]) error {
	r, err := s.prepare(spec, domain, rule.Styling, label)
	if err != nil {
		return err
	}
	r.CSSRules = strings.TrimSpace(css)
	return s.insert(ctx, r)
}

func (s *Store) insert(ctx context.Context, r rule.Rule) error {
	s.mu.Lock()
	if matcher.IsDuplicate(s.rules[r.Kind], r.Spec, r.Domain) {
		s.mu.Unlock()
		tracer().Infof("store: rejecting duplicate %v", r)
		return &rule.DuplicateError{Spec: r.Spec, Domain: r.Domain, Kind: r.Kind}
	}
	s.rules[r.Kind] = append(s.rules[r.Kind], r)
	s.mu.Unlock()
	tracer().Infof("store: added %v", r)
	return s.commit(ctx, r.Kind, r.Domain)
}

func (s *Store) prepare(spec, domain string, kind rule.Kind, label maybe.Maybe[string]) (rule.Rule, error) {
	clean, err := rule.CleanSpec(spec)
	if err != nil {
		return rule.Rule{}, err
	}
	r := rule.New(clean, strings.TrimSpace(domain), kind)
	if label != nil {
		r.Label = strings.TrimSpace(label.WithDefault(""))
	}
	return r, nil
}

// Remove deletes the rule identified by (spec, domain). Removing an absent
// rule is not an error.
func (s *Store) Remove(ctx context.Context, spec, domain string, kind rule.Kind) error {
	key := rule.Key{Spec: spec, Domain: domain}
	s.mu.Lock()
	i := indexOf(s.rules[kind], key)
	if i < 0 {
		s.mu.Unlock()
		tracer().Debugf("store: nothing to remove for %v", key)
		return nil
	}
	s.rules[kind] = append(s.rules[kind][:i:i], s.rules[kind][i+1:]...)
	s.mu.Unlock()
	tracer().Infof("store: removed %s rule %q", kind, spec)
	return s.commit(ctx, kind, domain)
}

// Toggle flips the enable flag of the rule identified by (spec, domain).
func (s *Store) Toggle(ctx context.Context, spec, domain string, kind rule.Kind) error {
	key := rule.Key{Spec: spec, Domain: domain}
	s.mu.Lock()
	i := indexOf(s.rules[kind], key)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("toggle %q: %w", spec, rule.ErrNotFound)
	}
	s.rules[kind][i].Enabled = !s.rules[kind][i].Enabled
	s.mu.Unlock()
	return s.commit(ctx, kind, domain)
}

// Patch carries the optional changes of Update. Nothing (or nil) leaves a
// field untouched.
type Patch struct {
	Spec     maybe.Maybe[string]
	Label    maybe.Maybe[string]
	CSSRules maybe.Maybe[string]
}

// Update renames, relabels or restyles a rule in place. A new spec is
// checked for uniqueness against all other rules of the kind.
func (s *Store) Update(ctx context.Context, spec, domain string, kind rule.Kind, p Patch) error {
	key := rule.Key{Spec: spec, Domain: domain}
	newSpec := ""
	if p.Spec != nil {
		if v, ok := p.Spec.Get(); ok {
			clean, err := rule.CleanSpec(v)
			if err != nil {
				return err
			}
			newSpec = clean
		}
	}
	s.mu.Lock()
	i := indexOf(s.rules[kind], key)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update %q: %w", spec, rule.ErrNotFound)
	}
	r := s.rules[kind][i]
	if newSpec != "" && newSpec != r.Spec {
		others := append(rule.Clone(s.rules[kind][:i]), s.rules[kind][i+1:]...)
		if matcher.IsDuplicate(others, newSpec, domain) {
			s.mu.Unlock()
			return &rule.DuplicateError{Spec: newSpec, Domain: domain, Kind: kind}
		}
		r.Spec = newSpec
	}
	if p.Label != nil {
		r.Label = p.Label.WithDefault(r.Label)
	}
	if p.CSSRules != nil {
		r.CSSRules = p.CSSRules.WithDefault(r.CSSRules)
	}
	s.rules[kind][i] = r
	s.mu.Unlock()
	tracer().Infof("store: updated %v", r)
	return s.commit(ctx, kind, domain)
}

// ToggleDomain switches all rules of kind in scope of domain (its own and
// the global ones): if none of them is enabled, all are enabled, otherwise
// all are disabled. It returns the new state. Without any rule in scope,
// nothing changes and ErrNothingToToggle is returned.
func (s *Store) ToggleDomain(ctx context.Context, domain string, kind rule.Kind) (bool, error) {
	s.mu.Lock()
	list := s.rules[kind]
	inScope, enabled := 0, 0
	for _, r := range list {
		if r.Scoped(domain) {
			inScope++
			if r.Enabled {
				enabled++
			}
		}
	}
	if inScope == 0 {
		s.mu.Unlock()
		tracer().Infof("store: no %s rules to toggle on %q", kind, domain)
		return false, ErrNothingToToggle
	}
	state := enabled == 0
	for i := range list {
		if list[i].Scoped(domain) {
			list[i].Enabled = state
		}
	}
	s.mu.Unlock()
	tracer().Infof("store: %s rules on %q switched to %v (%d rules)", kind, domain, state, inScope)
	return state, s.commit(ctx, kind, domain)
}

// ClearAll deletes every rule of kind.
func (s *Store) ClearAll(ctx context.Context, kind rule.Kind) error {
	s.mu.Lock()
	s.rules[kind] = []rule.Rule{}
	s.mu.Unlock()
	tracer().Infof("store: cleared all %s rules", kind)
	return s.commit(ctx, kind, s.pageDomain)
}

// Replace substitutes the complete rule list of kind, e.g. on an import
// with overwrite. The list is normalized by (spec, domain): later entries
// with a key already present are dropped.
func (s *Store) Replace(ctx context.Context, kind rule.Kind, rs []rule.Rule) error {
	list := make([]rule.Rule, 0, len(rs))
	for _, r := range rs {
		if indexOf(list, r.Key()) >= 0 {
			continue
		}
		r.Kind = kind
		list = append(list, r)
	}
	s.mu.Lock()
	s.rules[kind] = list
	s.mu.Unlock()
	return s.commit(ctx, kind, s.pageDomain)
}

// Merge appends the rules of rs whose (spec, domain) is not yet present.
// It returns the number of rules appended; with none appended, nothing is
// written.
func (s *Store) Merge(ctx context.Context, kind rule.Kind, rs []rule.Rule) (int, error) {
	s.mu.Lock()
	added := 0
	for _, r := range rs {
		if indexOf(s.rules[kind], r.Key()) >= 0 {
			continue
		}
		r.Kind = kind
		s.rules[kind] = append(s.rules[kind], r)
		added++
	}
	s.mu.Unlock()
	if added == 0 {
		return 0, nil
	}
	tracer().Infof("store: merged %d %s rule(s)", added, kind)
	return added, s.commit(ctx, kind, s.pageDomain)
}

// commit persists the rule list of kind, writes a backup snapshot for
// blocking rules and notifies listeners.
func (s *Store) commit(ctx context.Context, kind rule.Kind, domain string) error {
	s.mu.Lock()
	list := rule.Clone(s.rules[kind])
	s.mu.Unlock()
	err := s.write(ctx, kind.StorageKey(), list)
	if kind == rule.Blocking && s.backup != nil {
		if domain == rule.Global {
			domain = s.pageDomain
		}
		if domain != rule.Global {
			s.backup.WriteBackup(ctx, domain, list)
		}
	}
	s.listeners.notify(Event{Key: kind.StorageKey()})
	return err
}

func (s *Store) write(ctx context.Context, key string, list []rule.Rule) error {
	raw, err := rule.Marshal(list)
	if err != nil {
		return rule.Persistence("encode "+key, err)
	}
	return s.writeRaw(ctx, key, raw)
}

func (s *Store) writeRaw(ctx context.Context, key string, raw []byte) error {
	if _, err := s.primary.Set(ctx, key, raw).Get(); err != nil {
		tracer().Errorf("store: cannot write %q: %v", key, err)
		return rule.Persistence("write "+key, err)
	}
	return nil
}

// --- Queries ---------------------------------------------------------------

// Filter selects rules in Query. Unset fields do not filter.
//
// With OnlyActive, Domain is the page domain: only enabled rules which are
// global or belong to it are returned. Without OnlyActive, Domain selects
// rules of exactly this domain (rule.Global for the global rules).
type Filter struct {
	Domain     maybe.Maybe[string]
	Kind       maybe.Maybe[rule.Kind]
	OnlyActive bool
}

// Query returns copies of the rules passing filter f, blocking rules
// first, each kind in list order.
func (s *Store) Query(f Filter) []rule.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []rule.Rule{}
	for _, k := range kinds {
		if f.Kind != nil {
			if want, ok := f.Kind.Get(); ok && want != k {
				continue
			}
		}
		for _, r := range s.rules[k] {
			if f.accepts(r) {
				res = append(res, r)
			}
		}
	}
	return res
}

func (f Filter) accepts(r rule.Rule) bool {
	domain, hasDomain := "", false
	if f.Domain != nil {
		domain, hasDomain = f.Domain.Get()
	}
	if f.OnlyActive {
		if !hasDomain {
			return r.Enabled
		}
		return r.AppliesTo(domain)
	}
	return !hasDomain || r.Domain == domain
}

// Rules returns a copy of the complete list of kind.
func (s *Store) Rules(kind rule.Kind) []rule.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rule.Clone(s.rules[kind])
}

// Find returns the rule identified by (spec, domain).
func (s *Store) Find(spec, domain string, kind rule.Kind) maybe.Maybe[rule.Rule] {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.rules[kind], rule.Key{Spec: spec, Domain: domain})
	if i < 0 {
		return maybe.Nothing[rule.Rule]()
	}
	return maybe.Just(s.rules[kind][i])
}

// Domains returns all domains any rule is scoped to, "global" excluded.
func (s *Store) Domains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var ds []string
	for _, k := range kinds {
		for _, r := range s.rules[k] {
			if !r.IsGlobal() && !seen[r.Domain] {
				seen[r.Domain] = true
				ds = append(ds, r.Domain)
			}
		}
	}
	return ds
}

func indexOf(list []rule.Rule, key rule.Key) int {
	for i, r := range list {
		if r.Key().Matches(key) {
			return i
		}
	}
	return -1
}

// --- External changes ------------------------------------------------------

// Follow subscribes the store to changes of its primary channel made by
// other writers, e.g. another page or the CLI. Changes equal to the current
// in-memory state are ignored. The returned function unsubscribes.
func (s *Store) Follow() (cancel func()) {
	return s.primary.Watch(s.Apply)
}

// Apply takes over a change of the primary channel and notifies listeners
// if the state did change.
func (s *Store) Apply(c storage.Change) {
	s.mu.Lock()
	changed := false
	switch {
	case c.Key == rule.KeyBlockedClasses || c.Key == rule.KeyCustomStyles:
		kind, _ := rule.ParseKind(c.Key)
		list := rule.Normalize(c.Value, kind)
		if !reflect.DeepEqual(list, s.rules[kind]) {
			s.rules[kind] = list
			changed = true
		}
	case isSettingKey(c.Key):
		before := s.settings
		if c.Removed {
			s.settings.reset(c.Key)
		} else {
			s.settings.apply(c.Key, c.Value)
		}
		changed = before != s.settings
	}
	s.mu.Unlock()
	if changed {
		tracer().Debugf("store: external change of %q", c.Key)
		s.listeners.notify(Event{Key: c.Key})
	}
}

// OnChange registers a listener. The returned function unregisters it.
func (s *Store) OnChange(fn func(Event)) (cancel func()) {
	return s.listeners.add(fn)
}

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (l *listeners) add(fn func(Event)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(Event))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) notify(e Event) {
	l.mu.Lock()
	fns := make([]func(Event), 0, len(l.fns))
	for id := 0; id < l.next; id++ {
		if fn, ok := l.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
