package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextArg(t *testing.T) {
	cases := []struct {
		in, arg, rest string
		ok            bool
	}{
		{in: `hello world`, arg: "hello", rest: "world", ok: true},
		{in: `  "good morning" have a nice day`, arg: "good morning", rest: "have a nice day", ok: true},
		{in: `single`, arg: "single", rest: "", ok: true},
		{in: `"unterminated`, ok: false, rest: `"unterminated`},
		{in: `   `, ok: false},
	}
	for _, c := range cases {
		arg, rest, ok := nextArg(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.arg, arg, c.in)
		assert.Equal(t, c.rest, rest, c.in)
	}
}

func TestInterpretEmoji(t *testing.T) {
	e, ok := interpretEmoji("<:blobwave:123456789>")
	assert.True(t, ok)
	assert.Equal(t, "blobwave:123456789", e)

	e, ok = interpretEmoji("<a:party:42>")
	assert.True(t, ok)
	assert.Equal(t, "party:42", e)

	e, ok = interpretEmoji("👍")
	assert.True(t, ok)
	assert.Equal(t, "👍", e)

	_, ok = interpretEmoji("")
	assert.False(t, ok)
}

func TestInterpretChannelAndUser(t *testing.T) {
	c, ok := interpretChannel("<#123456789012345678>")
	assert.True(t, ok)
	assert.Equal(t, "123456789012345678", c)
	_, ok = interpretChannel("general")
	assert.False(t, ok)

	u, ok := interpretUserMention("<@!42>")
	assert.True(t, ok)
	assert.Equal(t, "42", u)
	_, ok = interpretUserMention("everyone")
	assert.False(t, ok)
}

func TestParseTriggerID(t *testing.T) {
	id, ok := parseTriggerID("#12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	_, ok = parseTriggerID("0")
	assert.False(t, ok)
	_, ok = parseTriggerID("abc")
	assert.False(t, ok)
}
