//Package matcher selects the trigger, if any, that should fire for an incoming message or interaction.
//
//Matching never blocks and never changes the caches it reads: guild triggers are tried first and global triggers
//are only consulted if nothing in the guild matched. When several triggers match in the same pass one is picked at
//random.
package matcher

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

//DefaultRegexTimeout bounds how long a single regex trigger may spend matching one message
const DefaultRegexTimeout = 100 * time.Millisecond

//ScopedSource provides the triggers owned by a guild
type ScopedSource interface {
	Get(guildID string) []guildmodels.Trigger
	Guilds() []string
}

//GlobalSource provides the triggers visible in every guild
type GlobalSource interface {
	Get() []guildmodels.Trigger
}

//PrefixResolver looks up the prefix a guild has configured for itself
type PrefixResolver interface {
	PrefixFor(guildID string) mo.Option[string]
}

//Options configures a Matcher
type Options struct {
	//DefaultPrefix is the bot wide prefix used by PrefixDefault and PrefixGuildOrDefault triggers
	DefaultPrefix string
	//RegexTimeout limits each regex evaluation; zero means DefaultRegexTimeout
	RegexTimeout time.Duration
}

//Event is the part of an incoming message or interaction that matching depends on
type Event struct {
	Text string
	//GuildID is empty for events that did not happen in a guild
	GuildID string
	Type    guildmodels.EventType
}

//Result is the trigger chosen for an event
type Result struct {
	Trigger guildmodels.Trigger
	//Target is whatever followed the trigger text when the trigger allows a target
	Target string
	//Global is true if the trigger came from the global set
	Global bool
}

//Matcher maps events to triggers. It is safe for concurrent use.
type Matcher struct {
	scoped   ScopedSource
	global   GlobalSource
	prefixes PrefixResolver
	opts     Options
	regexes  *regexCache
	pick     func(n int) int
}

//New creates a Matcher reading from the given trigger sources
func New(scoped ScopedSource, global GlobalSource, prefixes PrefixResolver, opts Options) *Matcher {
	if opts.RegexTimeout <= 0 {
		opts.RegexTimeout = DefaultRegexTimeout
	}
	opts.DefaultPrefix = strings.ToLower(opts.DefaultPrefix)
	return &Matcher{
		scoped:   scoped,
		global:   global,
		prefixes: prefixes,
		opts:     opts,
		regexes:  newRegexCache(opts.RegexTimeout),
		pick:     rand.IntN,
	}
}

//Match returns the trigger that should respond to ev, or None.
func (m *Matcher) Match(ev Event) mo.Option[Result] {
	text := strings.ToLower(strings.TrimSpace(ev.Text))

	if ev.GuildID != "" {
		if res, ok := m.choose(m.collect(text, ev, m.scoped.Get(ev.GuildID), false)); ok {
			matchesTotal.WithLabelValues("guild").Inc()
			return mo.Some(res)
		}
	}
	if res, ok := m.choose(m.collect(text, ev, m.global.Get(), true)); ok {
		matchesTotal.WithLabelValues("global").Inc()
		return mo.Some(res)
	}
	matchesTotal.WithLabelValues("none").Inc()
	return mo.None[Result]()
}

//PruneRegexes forgets compiled patterns that no cached trigger uses any more. Run it after the caches are reloaded.
func (m *Matcher) PruneRegexes() {
	live := make(map[string]struct{})
	addLive := func(ts []guildmodels.Trigger) {
		for i := range ts {
			if ts[i].IsRegex {
				live[ts[i].Trigger] = struct{}{}
			}
		}
	}
	for _, gid := range m.scoped.Guilds() {
		addLive(m.scoped.Get(gid))
	}
	addLive(m.global.Get())
	if dropped := m.regexes.retain(live); dropped > 0 {
		logrus.Debugf("Dropped %d compiled regex patterns which are no longer in use", dropped)
	}
}

//Candidates returns every trigger in the given list which matches ev. It is used by the admin surface to explain
//why a message did or did not fire.
func (m *Matcher) Candidates(ev Event, triggers []guildmodels.Trigger) []Result {
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	return m.collect(text, ev, triggers, false)
}

func (m *Matcher) collect(text string, ev Event, triggers []guildmodels.Trigger, global bool) []Result {
	var res []Result
	for i := range triggers {
		t := &triggers[i]
		target, ok := m.test(text, ev, t)
		if !ok {
			continue
		}
		res = append(res, Result{
			Trigger: *t,
			Target:  target,
			Global:  global,
		})
	}
	return res
}

func (m *Matcher) choose(matches []Result) (Result, bool) {
	switch len(matches) {
	case 0:
		return Result{}, false
	case 1:
		return matches[0], true
	default:
		return matches[m.pick(len(matches))], true
	}
}

//test checks a single trigger against normalized text. The prefix is stripped from a local copy so that nothing
//carries over between candidates.
func (m *Matcher) test(text string, ev Event, t *guildmodels.Trigger) (string, bool) {
	if !t.AcceptsEvent(ev.Type) {
		return "", false
	}
	prefix, ok := m.resolvePrefix(t, ev.GuildID)
	if !ok || !strings.HasPrefix(text, prefix) {
		return "", false
	}
	content := text[len(prefix):]

	if t.IsRegex {
		return "", m.regexes.match(t, content)
	}
	if t.RoleGrantMode.IncludesMentioned() {
		content = stripMentions(content)
	}
	return matchLiteral(content, t.Trigger, t.Flags)
}

func (m *Matcher) resolvePrefix(t *guildmodels.Trigger, guildID string) (string, bool) {
	switch t.PrefixType {
	case guildmodels.PrefixNone:
		return "", true
	case guildmodels.PrefixCustom:
		return t.CustomPrefix, true
	case guildmodels.PrefixGuildOrNone:
		return m.prefixes.PrefixFor(guildID).Get()
	case guildmodels.PrefixGuildOrDefault:
		return m.prefixes.PrefixFor(guildID).OrElse(m.opts.DefaultPrefix), true
	case guildmodels.PrefixDefault:
		return m.opts.DefaultPrefix, true
	default:
		return "", false
	}
}
