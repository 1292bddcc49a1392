package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	s := NewScanner()

	tokens := s.Extract("met @{item-1} at the tavern with @{item-2}")
	assert.Len(t, tokens, 2)
	assert.Equal(t, "item-1", tokens[0].ItemID)
	assert.Equal(t, "item-2", tokens[1].ItemID)
	assert.Equal(t, "@{item-1}", "met @{item-1} at the tavern with @{item-2}"[tokens[0].Start:tokens[0].End])

	assert.Empty(t, s.Extract("no tokens here, not even @plain or {braces}"))
	assert.Empty(t, s.Extract("@{} is not a mention"))
}

func TestRewrite(t *testing.T) {
	s := NewScanner()
	mapping := map[string]string{"item-1": "new-1"}

	// Mapped token rewrites; unmapped token is stripped entirely.
	got := s.Rewrite("ask @{item-1} about @{item-9}", mapping)
	assert.Equal(t, "ask @{new-1} about ", got)

	// Content without tokens is untouched.
	assert.Equal(t, "plain text", s.Rewrite("plain text", mapping))

	// Adjacent tokens rewrite independently.
	got = s.Rewrite("@{item-1}@{item-1}", mapping)
	assert.Equal(t, "@{new-1}@{new-1}", got)
}

func TestStrip(t *testing.T) {
	s := NewScanner()
	assert.Equal(t, "the  was here", s.Strip("the @{item-1} was here"))
}
