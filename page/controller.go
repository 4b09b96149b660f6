package page

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/blocker/dom"
	"github.com/npillmayer/blocker/dom/style/cssom"
	"github.com/npillmayer/blocker/dom/style/cssom/douceuradapter"
	"github.com/npillmayer/blocker/matcher"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/messaging"
	"github.com/npillmayer/blocker/reconcile"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/blocker/store"
	"github.com/npillmayer/blocker/stylesheet"
)

// IDs of the injected <style> elements.
const (
	BlockingStyleID = "element-blocker-styles"
	StylingStyleID  = "element-blocker-custom-styles"
)

// ErrNothingToPick is returned for a picked element without classes.
var ErrNothingToPick = errors.New("element has no class to block")

// Options configure a page controller.
type Options struct {
	URL          string
	Tab          string        // bus target name of the page; empty: not reachable
	Document     *dom.Document // live document; nil: an empty document is used
	Primary      storage.Store // shared primary store
	Local        storage.Store // page-local backup channel
	BackupPrefix string
	Bus          *messaging.Bus // may be nil
}

// Controller is the state of one open page.
type Controller struct {
	mu         sync.Mutex // serializes event processing
	domain     string
	tab        string
	doc        *dom.Document
	store      *store.Store
	backup     *reconcile.Backup
	inliner    *stylesheet.Inliner
	bus        *messaging.Bus
	inspecting bool
	cancels    []func()
	closed     bool
}

// Open loads a page: the rule store is read, the backup for the page's
// domain is merged into it, the stylesheets are injected and the
// controller starts following changes and messages.
//
// A failure to read the primary store is traced, the page then works with
// whatever could be read. Open fails only if the document has no <head>.
func Open(ctx context.Context, opts Options) (*Controller, error) {
	doc := opts.Document
	if doc == nil {
		var err error
		if doc, err = dom.ParseString("<html><head></head><body></body></html>"); err != nil {
			return nil, err
		}
	}
	c := &Controller{
		domain:  rule.DomainFromURL(opts.URL),
		tab:     opts.Tab,
		doc:     doc,
		inliner: stylesheet.NewInliner(doc),
		bus:     opts.Bus,
	}
	if opts.Local != nil {
		c.backup = reconcile.NewBackup(opts.Local, opts.BackupPrefix)
	}
	storeOpts := []store.Option{store.WithPageDomain(c.domain)}
	if c.backup != nil {
		storeOpts = append(storeOpts, store.WithBackup(c.backup))
	}
	c.store = store.New(opts.Primary, storeOpts...)
	if err := c.store.Load(ctx); err != nil {
		tracer().Errorf("page %s: %v", c.domain, err)
	}
	if c.backup != nil {
		if _, err := reconcile.Restore(ctx, c.store, c.backup, c.domain); err != nil {
			tracer().Errorf("page %s: writing restored rules: %v", c.domain, err)
		}
	}
	if err := c.inject(); err != nil {
		return nil, err
	}
	c.cancels = append(c.cancels, c.store.Follow(), c.store.OnChange(c.changed))
	if c.bus != nil && c.tab != "" {
		c.cancels = append(c.cancels, c.bus.Register(c.tab, c.router()))
	}
	c.notifyIcon(ctx)
	tracer().Infof("page %s: opened", c.domain)
	return c, nil
}

// Domain is the host name of the page.
func (c *Controller) Domain() string {
	return c.domain
}

// Document is the live document.
func (c *Controller) Document() *dom.Document {
	return c.doc
}

// Store is the page's view of the rule store.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Inspecting is true while the page is in pick-element mode.
func (c *Controller) Inspecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inspecting
}

// inject creates both <style> elements and fills them.
func (c *Controller) inject() error {
	for _, id := range []string{BlockingStyleID, StylingStyleID} {
		if _, err := c.doc.StyleElement(id); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	return nil
}

// refresh recompiles both stylesheets. c.mu must be held.
func (c *Controller) refresh() {
	if c.closed {
		return
	}
	blocking := stylesheet.Compile(c.store.Rules(rule.Blocking), c.domain, c.store.Enabled(rule.Blocking))
	c.setStyle(BlockingStyleID, blocking)
	styling := ""
	if c.store.Enabled(rule.Styling) {
		styles := c.store.Rules(rule.Styling)
		c.inliner.Apply(styles, c.domain)
		styling = stylesheet.Compile(styles, c.domain, true)
	} else {
		c.inliner.Restore()
	}
	c.setStyle(StylingStyleID, styling)
}

func (c *Controller) setStyle(id, css string) {
	if err := c.doc.SetStyleText(id, css); err != nil {
		tracer().Errorf("page %s: cannot inject %s: %v", c.domain, id, err)
	}
}

// CSS returns the current content of the injected style element id.
func (c *Controller) CSS(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el := c.doc.ElementByID(id); el != nil {
		return el.Text()
	}
	return ""
}

func (c *Controller) changed(e store.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.refresh()
	c.mu.Unlock()
	switch e.Key {
	case rule.KeyBlockedClasses, rule.KeyIsEnabled:
		c.notifyIcon(context.Background())
	}
}

// notifyIcon asks the background to recompute the tab icon. An absent
// background is ignored.
func (c *Controller) notifyIcon(ctx context.Context) {
	if c.bus == nil {
		return
	}
	msg := messaging.ForDomain(messaging.UpdateIcon, c.domain)
	msg.Tab = c.tab
	messaging.Notify(ctx, c.bus, messaging.Background, msg)
}

// --- Messages --------------------------------------------------------------

func (c *Controller) router() *messaging.Router {
	return messaging.NewRouter().
		Handle(messaging.UpdateBlocking, c.onUpdate).
		Handle(messaging.StartInspecting, c.onInspect).
		Handle(messaging.ToggleDomainBlocking, c.onToggle(rule.Blocking)).
		Handle(messaging.ToggleDomainStyling, c.onToggle(rule.Styling))
}

// Dispatch handles a message addressed to this page.
func (c *Controller) Dispatch(ctx context.Context, msg messaging.Message) messaging.Response {
	return c.router().Dispatch(ctx, msg)
}

// onUpdate takes over rule lists and switches pushed by a UI surface, as if
// they had arrived as storage changes.
func (c *Controller) onUpdate(ctx context.Context, msg messaging.Message) messaging.Response {
	if msg.BlockedClasses != nil {
		c.store.Apply(change(rule.KeyBlockedClasses, msg.BlockedClasses))
	}
	if msg.CustomStyles != nil {
		c.store.Apply(change(rule.KeyCustomStyles, msg.CustomStyles))
	}
	c.applySwitch(rule.KeyIsEnabled, msg.IsEnabled)
	c.applySwitch(rule.KeyIsStyleEnabled, msg.IsStyleEnabled)
	return messaging.OK()
}

func change(key string, rs []rule.Rule) storage.Change {
	raw, _ := rule.Marshal(rs)
	return storage.Change{Key: key, Value: raw}
}

func (c *Controller) applySwitch(key string, m maybe.Maybe[bool]) {
	if m == nil {
		return
	}
	if on, ok := m.Get(); ok {
		raw := []byte("false")
		if on {
			raw = []byte("true")
		}
		c.store.Apply(storage.Change{Key: key, Value: raw})
	}
}

func (c *Controller) onInspect(ctx context.Context, msg messaging.Message) messaging.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inspecting = true
	tracer().Debugf("page %s: inspect mode on", c.domain)
	return messaging.OK()
}

func (c *Controller) onToggle(kind rule.Kind) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) messaging.Response {
		domain := msg.Domain
		if domain == "" {
			domain = c.domain
		}
		state, err := c.ToggleDomain(ctx, domain, kind)
		if err != nil {
			return messaging.Failed(err)
		}
		return messaging.Toggled(state)
	}
}

// ToggleDomain switches the rules of kind in scope of domain.
func (c *Controller) ToggleDomain(ctx context.Context, domain string, kind rule.Kind) (bool, error) {
	state, err := c.store.ToggleDomain(ctx, domain, kind)
	switch {
	case errors.Is(err, store.ErrNothingToToggle):
		tracer().Infof("page %s: no %s rules to toggle", c.domain, kind)
	case err != nil:
		tracer().Errorf("page %s: %v", c.domain, err)
	}
	return state, err
}

// --- Pick element ----------------------------------------------------------

// Candidates are the blocking choices offered for a picked element.
type Candidates struct {
	Classes []string // each class on its own
	Spec    string   // all classes combined
	Applied []string // selectors of injected rules already matching the element
	Blocked bool     // Spec is part of the injected blocking sheet
}

// PickCandidates lists the rules a picked element could be blocked with.
func (c *Controller) PickCandidates(el *dom.Element) (Candidates, error) {
	classes := el.Classes()
	if len(classes) == 0 {
		return Candidates{}, ErrNothingToPick
	}
	cand := Candidates{Classes: classes, Spec: strings.Join(classes, " ")}
	sheet, err := c.Sheet()
	if err != nil {
		tracer().Errorf("page %s: cannot read back injected styles: %v", c.domain, err)
		return cand, nil
	}
	cand.Applied = applied(sheet, el)
	cand.Blocked = cssom.FindBySelector(sheet, matcher.GenerateSelector(cand.Spec)) != nil
	return cand, nil
}

// Sheet parses the content of both injected style elements back into one
// style sheet, blocking rules first.
func (c *Controller) Sheet() (cssom.StyleSheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, err := douceuradapter.StyleElement(c.doc.Root(), BlockingStyleID)
	if err != nil {
		return nil, err
	}
	styling, err := douceuradapter.StyleElement(c.doc.Root(), StylingStyleID)
	if err != nil {
		return nil, err
	}
	sheet.AppendRules(styling)
	return sheet, nil
}

func applied(sheet cssom.StyleSheet, el *dom.Element) []string {
	if sheet.Empty() {
		return nil
	}
	var sels []string
	for _, r := range sheet.Rules() {
		for _, s := range cssom.Selectors(r) {
			sel, err := cascadia.Parse(s)
			if err != nil {
				tracer().Debugf("page: injected selector %q does not compile: %v", s, err)
				continue
			}
			if sel.Match(el.HTMLNode()) {
				sels = append(sels, s)
			}
		}
	}
	return sels
}

// AddPicked adds a blocking rule for the page's domain and leaves inspect
// mode.
func (c *Controller) AddPicked(ctx context.Context, spec string) error {
	c.mu.Lock()
	c.inspecting = false
	c.mu.Unlock()
	return c.store.Add(ctx, spec, c.domain, rule.Blocking, maybe.Nothing[string]())
}

// StopInspecting leaves inspect mode without adding a rule.
func (c *Controller) StopInspecting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inspecting = false
}

// Close unsubscribes from changes and messages, restores inline styles
// changed by styling rules and removes the injected style elements.
// Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancels := c.cancels
	c.cancels = nil
	c.inliner.Restore()
	for _, id := range []string{BlockingStyleID, StylingStyleID} {
		c.doc.RemoveElement(c.doc.ElementByID(id))
	}
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	tracer().Infof("page %s: closed", c.domain)
}
