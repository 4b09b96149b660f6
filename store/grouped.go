package store

import (
	"sort"

	"github.com/npillmayer/blocker/rule"
	"github.com/xlab/treeprint"
)

// GroupedRules partitions rules by domain, using "global" as the key for
// global rules. It is a derived view and never written back.
type GroupedRules struct {
	Keys   []string // "global" first, domains in lexical order
	Groups map[string][]rule.Rule
}

// Group partitions a rule list. Rule order within a group is list order.
func Group(rs []rule.Rule) GroupedRules {
	g := GroupedRules{Groups: make(map[string][]rule.Rule)}
	for _, r := range rs {
		k := r.GroupKey()
		if _, ok := g.Groups[k]; !ok {
			g.Keys = append(g.Keys, k)
		}
		g.Groups[k] = append(g.Groups[k], r)
	}
	sort.Slice(g.Keys, func(i, j int) bool {
		a, b := g.Keys[i], g.Keys[j]
		if a == rule.GlobalGroup || b == rule.GlobalGroup {
			return a == rule.GlobalGroup && b != rule.GlobalGroup
		}
		return a < b
	})
	return g
}

// GroupByDomain groups the rules of kind.
func (s *Store) GroupByDomain(kind rule.Kind) GroupedRules {
	return Group(s.Rules(kind))
}

// Len returns the total number of rules.
func (g GroupedRules) Len() int {
	n := 0
	for _, rs := range g.Groups {
		n += len(rs)
	}
	return n
}

// Tree renders the groups as an indented tree, e.g.
//
//	.
//	├── global
//	│   └── [x] ad
//	└── news.example
//	    └── [ ] promo box  (sidebar)
func (g GroupedRules) Tree() string {
	tree := treeprint.New()
	for _, k := range g.Keys {
		branch := tree.AddBranch(k)
		for _, r := range g.Groups[k] {
			branch.AddNode(nodeText(r))
		}
	}
	return tree.String()
}

func nodeText(r rule.Rule) string {
	box := "[ ] "
	if r.Enabled {
		box = "[x] "
	}
	s := box + r.Spec
	if r.Label != "" {
		s += "  (" + r.Label + ")"
	}
	if r.Kind == rule.Styling && r.CSSRules != "" {
		s += "  { " + r.CSSRules + " }"
	}
	return s
}
