package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/npillmayer/blocker/background"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/messaging"
	"github.com/npillmayer/blocker/page"
	"github.com/npillmayer/blocker/reconcile"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/server"
	"github.com/npillmayer/blocker/store"
	"github.com/npillmayer/blocker/stylesheet"
	"github.com/npillmayer/blocker/transfer"
	"github.com/spf13/cobra"
)

// ruleFlags are the flags addressing a single rule.
type ruleFlags struct {
	domain string
	style  bool
}

func (f *ruleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "domain of the rule (default: global)")
	cmd.Flags().BoolVarP(&f.style, "style", "s", false, "address styling rules instead of blocking rules")
}

func (f *ruleFlags) kind() rule.Kind {
	if f.style {
		return rule.Styling
	}
	return rule.Blocking
}

func optional(cmd *cobra.Command, flag, value string) maybe.Maybe[string] {
	return maybe.Of(value, cmd.Flags().Changed(flag))
}

func (a *app) backup() *reconcile.Backup {
	return reconcile.NewBackup(a.port, a.cfg.BackupPrefix)
}

func (a *app) addCmd() *cobra.Command {
	var rf ruleFlags
	var css, label string
	cmd := &cobra.Command{
		Use:   "add <selector-spec>",
		Short: "Add a blocking or styling rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if rf.style {
				return a.store.AddStyling(ctx, args[0], rf.domain, css, optional(cmd, "label", label))
			}
			return a.store.Add(ctx, args[0], rf.domain, rule.Blocking, optional(cmd, "label", label))
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVar(&css, "css", "", "declarations of a styling rule, e.g. \"color: red\"")
	cmd.Flags().StringVarP(&label, "label", "l", "", "free-text label")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	var rf ruleFlags
	cmd := &cobra.Command{
		Use:   "rm <selector-spec>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Remove(cmd.Context(), args[0], rf.domain, rf.kind())
		},
	}
	rf.bind(cmd)
	return cmd
}

func (a *app) toggleCmd() *cobra.Command {
	var rf ruleFlags
	cmd := &cobra.Command{
		Use:   "toggle <selector-spec>",
		Short: "Enable or disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Toggle(cmd.Context(), args[0], rf.domain, rf.kind())
		},
	}
	rf.bind(cmd)
	return cmd
}

func (a *app) renameCmd() *cobra.Command {
	var rf ruleFlags
	var css, label string
	cmd := &cobra.Command{
		Use:   "rename <selector-spec> [new-spec]",
		Short: "Change the selector, label or declarations of a rule",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := store.Patch{
				Spec:     maybe.Nothing[string](),
				Label:    optional(cmd, "label", label),
				CSSRules: optional(cmd, "css", css),
			}
			if len(args) == 2 {
				p.Spec = maybe.Just(args[1])
			}
			return a.store.Update(cmd.Context(), args[0], rf.domain, rf.kind(), p)
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVar(&css, "css", "", "new declarations of a styling rule")
	cmd.Flags().StringVarP(&label, "label", "l", "", "new label")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var rf ruleFlags
	var tree, active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if tree {
				fmt.Fprint(out, a.store.GroupByDomain(rf.kind()).Tree())
				return nil
			}
			f := store.Filter{Kind: maybe.Just(rf.kind()), OnlyActive: active}
			if cmd.Flags().Changed("domain") {
				f.Domain = maybe.Just(rf.domain)
			}
			for _, r := range a.store.Query(f) {
				fmt.Fprintln(out, listLine(r))
			}
			return nil
		},
	}
	rf.bind(cmd)
	cmd.Flags().BoolVarP(&tree, "tree", "t", false, "group rules by domain")
	cmd.Flags().BoolVarP(&active, "active", "a", false, "only rules in effect on --domain")
	return cmd
}

func listLine(r rule.Rule) string {
	mark := "[ ]"
	if r.Enabled {
		mark = "[x]"
	}
	d := r.Domain
	if r.IsGlobal() {
		d = rule.GlobalGroup
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\t%s", mark, r.Spec, d)
	if r.CSSRules != "" {
		fmt.Fprintf(&b, "\t{ %s }", r.CSSRules)
	}
	if r.Label != "" {
		fmt.Fprintf(&b, "\t(%s)", r.Label)
	}
	return b.String()
}

func (a *app) toggleDomainCmd() *cobra.Command {
	var style bool
	cmd := &cobra.Command{
		Use:   "toggle-domain <domain>",
		Short: "Switch all rules of a domain on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := rule.Blocking
			if style {
				kind = rule.Styling
			}
			on, err := a.store.ToggleDomain(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s rules on %s: %s\n", kind, args[0], onOff(on))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&style, "style", "s", false, "toggle styling rules")
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (a *app) switchCmd(name string, on bool) *cobra.Command {
	var styling bool
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Switch blocking (or styling) %s globally", onOff(on)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := rule.Blocking
			if styling {
				kind = rule.Styling
			}
			return a.store.SetEnabled(cmd.Context(), kind, on)
		},
	}
	cmd.Flags().BoolVar(&styling, "styling", false, "switch styling instead of blocking")
	return cmd
}

func (a *app) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [light|dark|system]",
		Short: "Show or set the UI theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.store.Settings().Theme)
				return nil
			}
			return a.store.SetTheme(cmd.Context(), store.Theme(args[0]))
		},
	}
}

func (a *app) cssCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "css <domain>",
		Short: "Print the stylesheets injected into pages of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, kind := range []rule.Kind{rule.Blocking, rule.Styling} {
				css := stylesheet.Compile(a.store.Rules(kind), args[0], a.store.Enabled(kind))
				if css != "" {
					fmt.Fprintln(out, css)
				}
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := transfer.Export(a.store, time.Now())
			if file == "" {
				return f.Write(cmd.OutOrStdout())
			}
			w, err := os.Create(file)
			if err != nil {
				return err
			}
			if err := f.Write(w); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().StringVarP(&file, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge (or replace) rules from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sum, err := transfer.Import(cmd.Context(), a.store, data, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rule(s), %d in total\n", sum.Added, sum.Total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace the current configuration")
	return cmd
}

func (a *app) backupsCmd() *cobra.Command {
	var restore string
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List domain backups, or restore one into the rule store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := a.backup()
			if restore != "" {
				changed, err := reconcile.Restore(cmd.Context(), a.store, b, restore)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: restored=%v\n", restore, changed)
				return nil
			}
			for _, d := range b.Domains(cmd.Context()) {
				snap, ok := b.Load(cmd.Context(), d).Get()
				if !ok {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rule(s)\t%s\n", d, len(snap.BlockedClasses),
					snap.Timestamp.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&restore, "restore", "", "merge the backup of this domain into the rules")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = a.cfg.Listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			bus := messaging.NewBus()
			coord := background.New(a.store, bus)
			defer coord.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", listen)
			return server.New(a.store, bus).ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

// shortcutCmd plays the keyboard shortcut against a page: a background
// coordinator and a page controller share a bus, the page's tab is
// activated and the toggle command is run.
func (a *app) shortcutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shortcut <url>",
		Short: "Run the toggle-domain shortcut on a page URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bus := messaging.NewBus()
			coord := background.New(a.store, bus)
			defer coord.Close()
			const tab = "cli"
			ctrl, err := page.Open(ctx, page.Options{
				URL:          args[0],
				Tab:          tab,
				Primary:      a.port,
				Local:        a.port,
				BackupPrefix: a.cfg.BackupPrefix,
				Bus:          bus,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()
			coord.OpenTab(tab, args[0])
			if err := coord.Activate(tab); err != nil {
				return err
			}
			resp, err := coord.Command(ctx, background.CommandToggleDomain)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !resp.Success && resp.Error != "":
				fmt.Fprintf(out, "%s: %s\n", ctrl.Domain(), resp.Error)
			case resp.State != nil:
				fmt.Fprintf(out, "%s: blocking %s, icon %s\n", ctrl.Domain(), onOff(*resp.State), coord.Icon(tab))
			default:
				fmt.Fprintf(out, "%s: page did not answer\n", ctrl.Domain())
			}
			return nil
		},
	}
}
