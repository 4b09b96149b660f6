package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterUnknownAction(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.messaging")
	defer teardown()
	//
	r := NewRouter().Handle(StartInspecting, func(context.Context, Message) Response { return OK() })
	resp := r.Dispatch(context.Background(), New(StartInspecting))
	assert.True(t, resp.Success)
	resp = r.Dispatch(context.Background(), New("selfDestruct"))
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown action", resp.Error)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Unknown action"}`, string(raw))
	assert.False(t, Action("selfDestruct").Known())
	assert.True(t, UpdateIcon.Known())
}

func TestRouterUnsupportedAction(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.messaging")
	defer teardown()
	//
	r := NewRouter().Handle(StartInspecting, func(context.Context, Message) Response { return OK() })
	resp := r.Dispatch(context.Background(), New(UpdateIcon))
	assert.False(t, resp.Success)
	assert.Equal(t, ErrUnsupportedAction.Error(), resp.Error)
	resp = r.Dispatch(context.Background(), New(""))
	assert.Equal(t, ErrUnknownAction.Error(), resp.Error)
}

func TestBus(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.messaging")
	defer teardown()
	//
	ctx := context.Background()
	bus := NewBus()
	var got Message
	cancel := bus.Register("tab-1", NewRouter().Handle(ToggleDomainBlocking,
		func(_ context.Context, m Message) Response {
			got = m
			return Toggled(false)
		}))
	resp, err := bus.Send(ctx, "tab-1", ForDomain(ToggleDomainBlocking, "x.com")).Get()
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.State)
	assert.False(t, *resp.State)
	assert.Equal(t, "x.com", got.Domain)
	//
	cancel()
	_, err = bus.Send(ctx, "tab-1", New(StartInspecting)).Get()
	assert.ErrorIs(t, err, rule.ErrMessagingUnavailable)
	var unavailable *rule.MessagingUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "tab-1", unavailable.Target)
	_, ok := Notify(ctx, bus, "tab-1", New(StartInspecting))
	assert.False(t, ok)
	//
	canceled, stop := context.WithCancel(ctx)
	stop()
	_, err = bus.Send(canceled, Background, New(UpdateIcon)).Get()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMessageJSON(t *testing.T) {
	in := `{"action":"updateBlocking","blockedClasses":["ad",{"className":"x","enabled":false,"domain":"a.com"}],
		"customStyles":[{"className":"box","enabled":true,"domain":null,"cssRules":"color: red"}],
		"isEnabled":false,"isStyleEnabled":"yes","tabId":"7"}`
	var m Message
	require.NoError(t, json.Unmarshal([]byte(in), &m))
	assert.Equal(t, UpdateBlocking, m.Action)
	require.Len(t, m.BlockedClasses, 2)
	assert.Equal(t, rule.Global, m.BlockedClasses[0].Domain)
	require.Len(t, m.CustomStyles, 1)
	assert.Equal(t, rule.Styling, m.CustomStyles[0].Kind)
	on, ok := m.IsEnabled.Get()
	assert.True(t, ok)
	assert.False(t, on)
	assert.False(t, m.IsStyleEnabled.IsJust())
	assert.Equal(t, "7", m.Tab)
	//
	out, err := json.Marshal(Message{Action: UpdateIcon, Domain: "a.com", IsEnabled: maybe.Just(true)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"updateIcon","domain":"a.com","isEnabled":true}`, string(out))
}
