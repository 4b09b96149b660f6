/*
Package transfer exports the rule configuration to a JSON file and imports
it again, either replacing the current rules or merging into them.

The file format is

    {
      "version": "2.0",
      "exportDate": "2022-05-01T10:00:00.000Z",
      "config": {
        "blockedClasses": [ … ],
        "isEnabled": true,
        "customStyles": [ … ],
        "isStyleEnabled": true
      }
    }

customStyles and isStyleEnabled are optional.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package transfer

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/npillmayer/blocker"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/store"
	"github.com/npillmayer/schuko/tracing"
	"github.com/tidwall/gjson"
)

// tracer traces with key 'blocker.transfer'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.transfer")
}

// File is the content of an export file.
type File struct {
	Version    string
	ExportDate time.Time
	Config     Config
}

// Config is the exported configuration. Styling entries are Nothing if a
// file does not carry them.
type Config struct {
	BlockedClasses []rule.Rule
	IsEnabled      bool
	CustomStyles   maybe.Maybe[[]rule.Rule]
	IsStyleEnabled maybe.Maybe[bool]
}

type wireConfig struct {
	BlockedClasses []rule.Rule `json:"blockedClasses"`
	IsEnabled      bool        `json:"isEnabled"`
	CustomStyles   []rule.Rule `json:"customStyles,omitempty"`
	IsStyleEnabled *bool       `json:"isStyleEnabled,omitempty"`
}

type wireFile struct {
	Version    string     `json:"version"`
	ExportDate string     `json:"exportDate"`
	Config     wireConfig `json:"config"`
}

const dateLayout = "2006-01-02T15:04:05.000Z07:00"

// Export takes the current configuration of st.
func Export(st *store.Store, now time.Time) File {
	return File{
		Version:    blocker.Version,
		ExportDate: now,
		Config: Config{
			BlockedClasses: st.Rules(rule.Blocking),
			IsEnabled:      st.Enabled(rule.Blocking),
			CustomStyles:   maybe.Just(st.Rules(rule.Styling)),
			IsStyleEnabled: maybe.Just(st.Enabled(rule.Styling)),
		},
	}
}

// MarshalJSON writes the file format.
func (f File) MarshalJSON() ([]byte, error) {
	w := wireFile{
		Version:    f.Version,
		ExportDate: f.ExportDate.UTC().Format(dateLayout),
		Config: wireConfig{
			BlockedClasses: f.Config.BlockedClasses,
			IsEnabled:      f.Config.IsEnabled,
		},
	}
	if w.Config.BlockedClasses == nil {
		w.Config.BlockedClasses = []rule.Rule{}
	}
	if f.Config.CustomStyles != nil {
		w.Config.CustomStyles, _ = f.Config.CustomStyles.Get()
	}
	if f.Config.IsStyleEnabled != nil {
		if on, ok := f.Config.IsStyleEnabled.Get(); ok {
			w.Config.IsStyleEnabled = &on
		}
	}
	return json.Marshal(w)
}

// Write writes f as indented JSON.
func (f File) Write(w io.Writer) error {
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

// Parse reads an export file. Invalid JSON and a missing config object are
// ImportFormatErrors. A missing or malformed rule list is read as empty, an
// isEnabled which is not a boolean as true.
func Parse(data []byte) (File, error) {
	if !gjson.ValidBytes(data) {
		return File{}, &rule.ImportFormatError{Reason: "file is not valid JSON"}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return File{}, &rule.ImportFormatError{Reason: "file does not contain an object"}
	}
	cfg := doc.Get("config")
	if !cfg.IsObject() {
		return File{}, &rule.ImportFormatError{Reason: "config section missing"}
	}
	f := File{Version: doc.Get("version").String()}
	if t, err := time.Parse(time.RFC3339Nano, doc.Get("exportDate").String()); err == nil {
		f.ExportDate = t
	}
	f.Config.BlockedClasses = rule.Normalize([]byte(cfg.Get("blockedClasses").Raw), rule.Blocking)
	f.Config.IsEnabled = true
	if en := cfg.Get("isEnabled"); en.IsBool() {
		f.Config.IsEnabled = en.Bool()
	}
	f.Config.CustomStyles = maybe.Nothing[[]rule.Rule]()
	if cs := cfg.Get("customStyles"); cs.IsArray() {
		f.Config.CustomStyles = maybe.Just(rule.Normalize([]byte(cs.Raw), rule.Styling))
	}
	en := cfg.Get("isStyleEnabled")
	f.Config.IsStyleEnabled = maybe.Of(en.Bool(), en.IsBool())
	return f, nil
}

// Summary reports the outcome of an import.
type Summary struct {
	Added int // rules appended (merge) or written (overwrite)
	Total int // blocking and styling rules after the import
}

// Import applies an export file to st. With overwrite, the rule lists and
// switches are replaced; otherwise rules not yet present by (spec, domain)
// are appended and switches are left alone. A malformed file is rejected
// before st is touched.
func Import(ctx context.Context, st *store.Store, data []byte, overwrite bool) (Summary, error) {
	f, err := Parse(data)
	if err != nil {
		tracer().Infof("transfer: rejecting import: %v", err)
		return Summary{}, err
	}
	var sum Summary
	styles, hasStyles := f.Config.CustomStyles.Get()
	if overwrite {
		if err := st.Replace(ctx, rule.Blocking, f.Config.BlockedClasses); err != nil {
			return sum, err
		}
		sum.Added = len(f.Config.BlockedClasses)
		if err := st.SetEnabled(ctx, rule.Blocking, f.Config.IsEnabled); err != nil {
			return sum, err
		}
		if hasStyles {
			if err := st.Replace(ctx, rule.Styling, styles); err != nil {
				return sum, err
			}
			sum.Added += len(styles)
		}
		if on, ok := f.Config.IsStyleEnabled.Get(); ok {
			if err := st.SetEnabled(ctx, rule.Styling, on); err != nil {
				return sum, err
			}
		}
	} else {
		n, err := st.Merge(ctx, rule.Blocking, f.Config.BlockedClasses)
		sum.Added = n
		if err != nil {
			return sum, err
		}
		if hasStyles {
			n, err := st.Merge(ctx, rule.Styling, styles)
			sum.Added += n
			if err != nil {
				return sum, err
			}
		}
	}
	sum.Total = len(st.Rules(rule.Blocking)) + len(st.Rules(rule.Styling))
	tracer().Infof("transfer: imported %d rule(s), %d in total", sum.Added, sum.Total)
	return sum, nil
}
