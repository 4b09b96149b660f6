package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/blocker/config"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/blocker/storage/memstore"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// keepOpen survives the Close at the end of each command, so one memory
// store can be shared across invocations.
type keepOpen struct {
	*memstore.Store
}

func (keepOpen) Close() error { return nil }

func runner(t *testing.T) (func(args ...string) (string, error), *memstore.Store) {
	t.Setenv("HOME", t.TempDir())
	mem := memstore.New()
	open := func(ctx context.Context, cfg config.Config) (storage.Store, error) {
		return keepOpen{mem}, nil
	}
	return func(args ...string) (string, error) {
		root := NewRootCmd(open)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--backend", "memory"}, args...))
		err := root.Execute()
		return out.String(), err
	}, mem
}

func TestAddListRemove(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.cli")
	defer teardown()
	//
	run, _ := runner(t)
	_, err := run("add", "ad-banner", "--domain", "example.com", "--label", "top")
	require.NoError(t, err)
	_, err = run("add", "ad-banner", "--domain", "example.com")
	assert.ErrorIs(t, err, rule.ErrDuplicate)
	_, err = run("add", "sidebar")
	require.NoError(t, err)

	out, err := run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "[x] ad-banner\texample.com\t(top)")
	assert.Contains(t, out, "[x] sidebar\tglobal")

	out, err = run("list", "--domain", "other.com", "--active")
	require.NoError(t, err)
	assert.NotContains(t, out, "ad-banner")
	assert.Contains(t, out, "sidebar")

	out, err = run("list", "--tree")
	require.NoError(t, err)
	assert.Contains(t, out, "example.com")

	_, err = run("toggle", "sidebar")
	require.NoError(t, err)
	out, _ = run("list")
	assert.Contains(t, out, "[ ] sidebar")

	_, err = run("rename", "sidebar", "side-bar")
	require.NoError(t, err)
	_, err = run("rm", "side-bar")
	require.NoError(t, err)
	out, _ = run("list")
	assert.NotContains(t, out, "side")
}

func TestStylingAndCSS(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.cli")
	defer teardown()
	//
	run, _ := runner(t)
	_, err := run("add", "header", "--style", "--domain", "example.com", "--css", "color: red")
	require.NoError(t, err)
	_, err = run("add", "ad")
	require.NoError(t, err)
	out, err := run("css", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "display: none !important;")
	assert.Contains(t, out, "color: red !important;")

	_, err = run("disable", "--styling")
	require.NoError(t, err)
	out, _ = run("css", "example.com")
	assert.NotContains(t, out, "color: red")
}

func TestToggleDomainAndTheme(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.cli")
	defer teardown()
	//
	run, _ := runner(t)
	_, err := run("toggle-domain", "example.com")
	assert.Error(t, err)
	run("add", "ad", "-d", "example.com")
	out, err := run("toggle-domain", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "blocking rules on example.com: off")

	_, err = run("theme", "dark")
	require.NoError(t, err)
	out, _ = run("theme")
	assert.Equal(t, "dark", strings.TrimSpace(out))
	_, err = run("theme", "sepia")
	assert.Error(t, err)
}

func TestExportImportFiles(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.cli")
	defer teardown()
	//
	run, _ := runner(t)
	run("add", "ad")
	file := filepath.Join(t.TempDir(), "export.json")
	_, err := run("export", "-o", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "ad", gjson.GetBytes(data, "config.blockedClasses.0.className").String())

	run2, _ := runner(t)
	out, err := run2("import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 rule(s)")
	out, _ = run2("list")
	assert.Contains(t, out, "ad")
}

func TestBackupsAndShortcut(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.cli")
	defer teardown()
	//
	run, _ := runner(t)
	_, err := run("add", "promo", "--domain", "news.example")
	require.NoError(t, err)
	out, err := run("backups")
	require.NoError(t, err)
	assert.Contains(t, out, "news.example\t1 rule(s)")

	out, err = run("shortcut", "https://news.example/article")
	require.NoError(t, err)
	assert.Contains(t, out, "news.example: blocking off")
	out, _ = run("list")
	assert.Contains(t, out, "[ ] promo")

	out, err = run("shortcut", "https://news.example/")
	require.NoError(t, err)
	assert.Contains(t, out, "blocking on, icon icons/icon-active.png")
}
