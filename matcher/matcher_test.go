package matcher

import (
	"strings"
	"testing"
	"time"

	"github.com/callummance/hibiki/cache"
	"github.com/callummance/hibiki/guildmodels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID   = "guild-789"
	otherGuildID  = "guild-000"
	defaultPrefix = "!"
)

type matcherFixture struct {
	scoped   *cache.ScopedCache
	global   *cache.GlobalCache
	prefixes *cache.PrefixCache
	matcher  *Matcher
}

func setupMatcher(t *testing.T) *matcherFixture {
	t.Helper()
	f := &matcherFixture{
		scoped:   cache.NewScopedCache(),
		global:   cache.NewGlobalCache(),
		prefixes: cache.NewPrefixCache(),
	}
	f.matcher = New(f.scoped, f.global, f.prefixes, Options{
		DefaultPrefix: defaultPrefix,
		RegexTimeout:  50 * time.Millisecond,
	})
	return f
}

func literal(id int64, text string) guildmodels.Trigger {
	return guildmodels.Trigger{
		ID:          id,
		GuildID:     testGuildID,
		Trigger:     text,
		Response:    "response",
		ValidEvents: guildmodels.EventAll,
	}
}

func messageEvent(text string) Event {
	return Event{Text: text, GuildID: testGuildID, Type: guildmodels.EventMessage}
}

func TestExactTextAlwaysMatches(t *testing.T) {
	flagSets := []guildmodels.MatchFlags{
		{},
		{ContainsAnywhere: true},
		{AllowTarget: true},
		{ContainsAnywhere: true, AllowTarget: true},
	}
	for _, flags := range flagSets {
		f := setupMatcher(t)
		tr := literal(1, "hello")
		tr.Flags = flags
		f.scoped.Upsert(testGuildID, tr)

		res := f.matcher.Match(messageEvent("  HeLLo "))
		require.True(t, res.IsPresent(), "flags %+v", flags)
		assert.Equal(t, int64(1), res.MustGet().Trigger.ID)
	}
}

func TestLongerTextNeverMatchesWithoutFlags(t *testing.T) {
	f := setupMatcher(t)
	f.scoped.Upsert(testGuildID, literal(1, "hello"))

	for _, text := range []string{"hello world", "hellothere", "say hello", "hello!"} {
		assert.True(t, f.matcher.Match(messageEvent(text)).IsAbsent(), text)
	}
}

func TestShorterTextNeverMatches(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, "hello")
	tr.Flags = guildmodels.MatchFlags{ContainsAnywhere: true, AllowTarget: true}
	f.scoped.Upsert(testGuildID, tr)

	assert.True(t, f.matcher.Match(messageEvent("hell")).IsAbsent())
}

func TestAllowTarget(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, "hello")
	tr.Flags.AllowTarget = true
	f.scoped.Upsert(testGuildID, tr)

	res := f.matcher.Match(messageEvent("hello world"))
	require.True(t, res.IsPresent())
	assert.Equal(t, "world", res.MustGet().Target)

	res = f.matcher.Match(messageEvent("hello"))
	require.True(t, res.IsPresent())
	assert.Equal(t, "", res.MustGet().Target)

	assert.True(t, f.matcher.Match(messageEvent("hellothere")).IsAbsent())
}

func TestContainsAnywhereRequiresWordBoundary(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, "cat")
	tr.Flags.ContainsAnywhere = true
	f.scoped.Upsert(testGuildID, tr)

	tests := []struct {
		text  string
		match bool
	}{
		{"the cat sat", true},
		{"cat food", true},
		{"my cat", true},
		{"a cat, obviously", true},
		{"concatenate", false},
		{"cats are great", false},
		{"bobcat", false},
		{"bobcat and cat", true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.match, f.matcher.Match(messageEvent(tc.text)).IsPresent())
		})
	}
}

func TestGuildTriggersShadowGlobal(t *testing.T) {
	f := setupMatcher(t)
	g := literal(10, "hello")
	g.GuildID = ""
	f.global.Upsert(g)
	f.scoped.Upsert(testGuildID, literal(1, "hello"))

	res := f.matcher.Match(messageEvent("hello"))
	require.True(t, res.IsPresent())
	assert.Equal(t, int64(1), res.MustGet().Trigger.ID)
	assert.False(t, res.MustGet().Global)

	res = f.matcher.Match(Event{Text: "hello", GuildID: otherGuildID, Type: guildmodels.EventMessage})
	require.True(t, res.IsPresent())
	assert.Equal(t, int64(10), res.MustGet().Trigger.ID)
	assert.True(t, res.MustGet().Global)
}

func TestGlobalUsedWhenGuildHasNoMatch(t *testing.T) {
	f := setupMatcher(t)
	g := literal(10, "bye")
	g.GuildID = ""
	f.global.Upsert(g)
	f.scoped.Upsert(testGuildID, literal(1, "hello"))

	res := f.matcher.Match(messageEvent("bye"))
	require.True(t, res.IsPresent())
	assert.Equal(t, int64(10), res.MustGet().Trigger.ID)

	res = f.matcher.Match(Event{Text: "bye", Type: guildmodels.EventMessage})
	require.True(t, res.IsPresent(), "events outside a guild only see global triggers")
}

func TestEventTypeFilter(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, "hello")
	tr.ValidEvents = guildmodels.EventSlash
	f.scoped.Upsert(testGuildID, tr)

	assert.True(t, f.matcher.Match(messageEvent("hello")).IsAbsent())
	assert.True(t, f.matcher.Match(Event{Text: "hello", GuildID: testGuildID, Type: guildmodels.EventSlash}).IsPresent())
}

func TestPrefixResolution(t *testing.T) {
	tests := []struct {
		name        string
		prefixType  guildmodels.PrefixType
		custom      string
		guildPrefix string
		text        string
		match       bool
	}{
		{"none", guildmodels.PrefixNone, "", "", "hello", true},
		{"none rejects prefixed", guildmodels.PrefixNone, "", "", "!hello", false},
		{"custom", guildmodels.PrefixCustom, "?", "", "?hello", true},
		{"custom missing", guildmodels.PrefixCustom, "?", "", "hello", false},
		{"guild set", guildmodels.PrefixGuildOrNone, "", "hb.", "HB.hello", true},
		{"guild unset skips", guildmodels.PrefixGuildOrNone, "", "", "hello", false},
		{"guild or default uses guild", guildmodels.PrefixGuildOrDefault, "", "hb.", "hb.hello", true},
		{"guild or default ignores default when guild set", guildmodels.PrefixGuildOrDefault, "", "hb.", "!hello", false},
		{"guild or default falls back", guildmodels.PrefixGuildOrDefault, "", "", "!hello", true},
		{"default", guildmodels.PrefixDefault, "", "hb.", "!hello", true},
		{"default rejects guild prefix", guildmodels.PrefixDefault, "", "hb.", "hb.hello", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupMatcher(t)
			f.prefixes.Set(testGuildID, tc.guildPrefix)
			tr := literal(1, "hello")
			tr.PrefixType = tc.prefixType
			tr.CustomPrefix = tc.custom
			f.scoped.Upsert(testGuildID, tr)

			assert.Equal(t, tc.match, f.matcher.Match(messageEvent(tc.text)).IsPresent())
		})
	}
}

func TestPrefixIsStrippedPerCandidate(t *testing.T) {
	f := setupMatcher(t)
	// "?" stripped for the first candidate must not leak into the second one's comparison
	first := literal(1, "nomatch")
	first.PrefixType = guildmodels.PrefixCustom
	first.CustomPrefix = "?"
	second := literal(2, "?hello")
	f.scoped.Upsert(testGuildID, first)
	f.scoped.Upsert(testGuildID, second)

	res := f.matcher.Match(messageEvent("?hello"))
	require.True(t, res.IsPresent())
	assert.Equal(t, int64(2), res.MustGet().Trigger.ID)

	third := literal(3, "hello")
	f.scoped.ReplaceAll(testGuildID, []guildmodels.Trigger{first, third})
	assert.True(t, f.matcher.Match(messageEvent("?hello")).IsAbsent())
}

func TestMentionsStrippedForMentionRoleGrants(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, "hug")
	tr.RoleGrantMode = guildmodels.RoleGrantMentioned
	f.scoped.Upsert(testGuildID, tr)

	assert.True(t, f.matcher.Match(messageEvent("hug <@12345>")).IsPresent())
	assert.True(t, f.matcher.Match(messageEvent("<@!12345> hug <@678>")).IsPresent())

	tr.RoleGrantMode = guildmodels.RoleGrantSender
	f.scoped.Upsert(testGuildID, tr)
	assert.True(t, f.matcher.Match(messageEvent("hug <@12345>")).IsAbsent())
}

func TestRegexMatch(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, `^good (morning|night)$`)
	tr.IsRegex = true
	f.scoped.Upsert(testGuildID, tr)

	assert.True(t, f.matcher.Match(messageEvent("Good Morning")).IsPresent())
	assert.True(t, f.matcher.Match(messageEvent("good night")).IsPresent())
	assert.True(t, f.matcher.Match(messageEvent("good afternoon")).IsAbsent())
}

func TestRegexKeepsCaseSensitiveEscapes(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, `^\D+$`)
	tr.IsRegex = true
	f.scoped.Upsert(testGuildID, tr)

	assert.True(t, f.matcher.Match(messageEvent("letters")).IsPresent())
	assert.True(t, f.matcher.Match(messageEvent("123")).IsAbsent())
}

func TestInvalidRegexIsNoMatch(t *testing.T) {
	f := setupMatcher(t)
	bad := literal(1, `(unclosed`)
	bad.IsRegex = true
	f.scoped.Upsert(testGuildID, bad)
	f.scoped.Upsert(testGuildID, literal(2, "(unclosed"))

	res := f.matcher.Match(messageEvent("(unclosed"))
	require.True(t, res.IsPresent())
	assert.Equal(t, int64(2), res.MustGet().Trigger.ID)
}

func TestRegexLongInputDoesNotMatchWithinTimeout(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, `^a+$`)
	tr.IsRegex = true
	f.scoped.Upsert(testGuildID, tr)

	input := strings.Repeat("a", 10000) + "b"
	start := time.Now()
	res := f.matcher.Match(messageEvent(input))
	elapsed := time.Since(start)

	assert.True(t, res.IsAbsent())
	assert.Less(t, elapsed, 50*time.Millisecond+250*time.Millisecond)
}

func TestCatastrophicRegexTimesOutAndMatchingContinues(t *testing.T) {
	f := setupMatcher(t)
	evil := literal(1, `^(a+)+$`)
	evil.IsRegex = true
	f.scoped.Upsert(testGuildID, evil)
	fallback := literal(2, "boom")
	fallback.Flags.ContainsAnywhere = true
	f.scoped.Upsert(testGuildID, fallback)

	input := strings.Repeat("a", 32) + "! boom"
	start := time.Now()
	res := f.matcher.Match(messageEvent(input))
	elapsed := time.Since(start)

	require.True(t, res.IsPresent())
	assert.Equal(t, int64(2), res.MustGet().Trigger.ID)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestTieBreakPicksAmongAllMatches(t *testing.T) {
	f := setupMatcher(t)
	f.scoped.Upsert(testGuildID, literal(1, "hello"))
	f.scoped.Upsert(testGuildID, literal(2, "hello"))
	f.scoped.Upsert(testGuildID, literal(3, "bye"))

	var offered int
	f.matcher.pick = func(n int) int {
		offered = n
		return n - 1
	}
	res := f.matcher.Match(messageEvent("hello"))
	require.True(t, res.IsPresent())
	assert.Equal(t, 2, offered)
	assert.Equal(t, int64(2), res.MustGet().Trigger.ID)
}

func TestTieBreakEventuallyPicksEach(t *testing.T) {
	f := setupMatcher(t)
	f.scoped.Upsert(testGuildID, literal(1, "hello"))
	f.scoped.Upsert(testGuildID, literal(2, "hello"))

	seen := map[int64]bool{}
	for i := 0; i < 200 && len(seen) < 2; i++ {
		seen[f.matcher.Match(messageEvent("hello")).MustGet().Trigger.ID] = true
	}
	assert.Len(t, seen, 2)
}

func TestMatchDoesNotMutateCache(t *testing.T) {
	f := setupMatcher(t)
	tr := literal(1, "hello")
	tr.PrefixType = guildmodels.PrefixCustom
	tr.CustomPrefix = "?"
	f.scoped.Upsert(testGuildID, tr)
	before := f.scoped.Get(testGuildID)

	f.matcher.Match(messageEvent("?hello"))
	assert.Equal(t, before, f.scoped.Get(testGuildID))
	assert.Equal(t, "hello", f.scoped.Get(testGuildID)[0].Trigger)
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("héllo wörld", "wörld"))
	assert.False(t, containsWord("héllowörld", "wörld"))
	assert.False(t, containsWord("anything", ""))
}

func TestPruneRegexesDropsUnusedPatterns(t *testing.T) {
	f := setupMatcher(t)
	kept := literal(1, `^good (morning|night)$`)
	kept.IsRegex = true
	dropped := literal(2, `^bye\s+all$`)
	dropped.IsRegex = true
	global := literal(3, `^hello`)
	global.GuildID = ""
	global.IsRegex = true
	f.scoped.Upsert(testGuildID, kept)
	f.scoped.Upsert(testGuildID, dropped)
	f.global.Upsert(global)

	f.matcher.Match(messageEvent("nothing matches this"))
	require.Equal(t, 3, f.matcher.regexes.size())

	f.scoped.Remove(testGuildID, dropped.ID)
	f.matcher.PruneRegexes()
	assert.Equal(t, 2, f.matcher.regexes.size())

	//Pruned patterns are compiled again if they come back
	f.scoped.Upsert(testGuildID, dropped)
	assert.True(t, f.matcher.Match(messageEvent("bye   all")).IsPresent())
	assert.Equal(t, 3, f.matcher.regexes.size())
}
