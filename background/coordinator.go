package background

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/npillmayer/blocker/messaging"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/store"
)

// Icon paths.
const (
	IconActive   = "icons/icon-active.png"
	IconInactive = "icons/icon.png"
)

// CommandToggleDomain is the name of the shortcut command toggling blocking
// for the active tab's domain.
const CommandToggleDomain = "toggle-domain-blocking"

// ErrNoActiveTab is returned by Command if no tab is active.
var ErrNoActiveTab = errors.New("no active tab")

// Tab is an open page as seen by the coordinator.
type Tab struct {
	ID     string
	URL    string
	Domain string
	Icon   string
}

// Coordinator is the background context.
type Coordinator struct {
	mu     sync.Mutex
	store  *store.Store
	bus    *messaging.Bus
	tabs   map[string]*Tab
	active string
	cancel []func()
}

// New creates a coordinator reading rules from st and registers it on bus
// as messaging.Background. Close detaches it.
func New(st *store.Store, bus *messaging.Bus) *Coordinator {
	c := &Coordinator{store: st, bus: bus, tabs: make(map[string]*Tab)}
	router := messaging.NewRouter().Handle(messaging.UpdateIcon, c.onUpdateIcon)
	c.cancel = append(c.cancel,
		bus.Register(messaging.Background, router),
		st.Follow(),
		st.OnChange(func(e store.Event) {
			if e.Key == rule.KeyBlockedClasses || e.Key == rule.KeyIsEnabled {
				c.RefreshIcons()
			}
		}))
	return c
}

// Close detaches the coordinator from bus and store.
func (c *Coordinator) Close() {
	for _, cancel := range c.cancel {
		cancel()
	}
	c.cancel = nil
}

// HasActiveBlocking is true if blocking is switched on and at least one
// enabled blocking rule applies to domain.
func (c *Coordinator) HasActiveBlocking(domain string) bool {
	if !c.store.Enabled(rule.Blocking) {
		return false
	}
	for _, r := range c.store.Rules(rule.Blocking) {
		if r.AppliesTo(domain) {
			return true
		}
	}
	return false
}

// IconFor returns the icon path for a domain.
func (c *Coordinator) IconFor(domain string) string {
	if c.HasActiveBlocking(domain) {
		return IconActive
	}
	return IconInactive
}

// OpenTab registers or updates a tab and computes its icon.
func (c *Coordinator) OpenTab(id, url string) Tab {
	domain := rule.DomainFromURL(url)
	icon := c.IconFor(domain)
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Tab{ID: id, URL: url, Domain: domain, Icon: icon}
	c.tabs[id] = t
	return *t
}

// CloseTab forgets a tab.
func (c *Coordinator) CloseTab(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tabs, id)
	if c.active == id {
		c.active = ""
	}
}

// Activate makes a tab the active one and refreshes its icon.
func (c *Coordinator) Activate(id string) error {
	c.mu.Lock()
	t, ok := c.tabs[id]
	if ok {
		c.active = id
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("activate %q: unknown tab", id)
	}
	c.updateIcon(id, t.Domain)
	return nil
}

// ActiveTab returns the active tab.
func (c *Coordinator) ActiveTab() (Tab, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tabs[c.active]; ok {
		return *t, true
	}
	return Tab{}, false
}

// Icon returns the current icon of a tab.
func (c *Coordinator) Icon(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tabs[id]; ok {
		return t.Icon
	}
	return IconInactive
}

// RefreshIcons recomputes the icons of all tabs.
func (c *Coordinator) RefreshIcons() {
	c.mu.Lock()
	ids := make(map[string]string, len(c.tabs))
	for id, t := range c.tabs {
		ids[id] = t.Domain
	}
	c.mu.Unlock()
	for id, domain := range ids {
		c.updateIcon(id, domain)
	}
}

func (c *Coordinator) updateIcon(id, domain string) {
	icon := c.IconFor(domain)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tabs[id]; ok && t.Icon != icon {
		t.Icon = icon
		tracer().Debugf("background: tab %s (%s) icon %s", id, domain, icon)
	}
}

func (c *Coordinator) onUpdateIcon(ctx context.Context, msg messaging.Message) messaging.Response {
	c.mu.Lock()
	t, ok := c.tabs[msg.Tab]
	c.mu.Unlock()
	switch {
	case ok:
		c.updateIcon(t.ID, t.Domain)
	case msg.Tab != "":
		c.OpenTab(msg.Tab, "https://"+msg.Domain+"/")
	default:
		c.RefreshIcons()
	}
	return messaging.OK()
}

// Command runs a keyboard shortcut command. For CommandToggleDomain, the
// active page is asked to toggle blocking for its domain; an unreachable
// page is ignored.
func (c *Coordinator) Command(ctx context.Context, name string) (messaging.Response, error) {
	if name != CommandToggleDomain {
		return messaging.Response{}, fmt.Errorf("unknown command %q", name)
	}
	t, ok := c.ActiveTab()
	if !ok {
		return messaging.Response{}, ErrNoActiveTab
	}
	tracer().Infof("background: %s on tab %s (%s)", name, t.ID, t.Domain)
	resp, ok := messaging.Notify(ctx, c.bus, t.ID, messaging.ForDomain(messaging.ToggleDomainBlocking, t.Domain))
	if !ok {
		return messaging.Response{}, nil
	}
	return resp, nil
}
