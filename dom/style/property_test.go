package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyNames(t *testing.T) {
	assert.Equal(t, []string{"color", "margin-top"}, PropertyNames("color: red; margin-top:0;;"))
	assert.Empty(t, PropertyNames(": red; nonsense"))
}

func TestInlineStyleWithout(t *testing.T) {
	s := ParseInline("color: blue; width:10px ; background: url(a;b)")
	assert.Len(t, s.Properties(), 3) // the url() fragment "b)" carries no key
	stripped := s.Without([]string{"color"})
	assert.Equal(t, " width:10px ; background: url(a;b)", stripped.String())
	assert.False(t, stripped.Empty())
	assert.True(t, ParseInline("color: red").Without([]string{"color"}).Empty())
}

func TestWithoutIgnoresCase(t *testing.T) {
	s := ParseInline("Color: blue; MARGIN-TOP: 1px; width: 2px")
	assert.Equal(t, " width: 2px", s.Without([]string{"color", " Margin-Top"}).String())
}

func TestProperty(t *testing.T) {
	assert.True(t, Property(" red !important ").IsImportant())
	assert.True(t, NullStyle.IsEmpty())
	assert.Equal(t, "red", Property("red").String())
}
