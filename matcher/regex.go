package matcher

import (
	"sync"
	"time"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"
)

type compiledRegex struct {
	re  *regexp2.Regexp
	err error
}

//regexCache compiles each distinct pattern once. Patterns that fail to compile are remembered so they are only
//reported the first time.
type regexCache struct {
	timeout  time.Duration
	compiled sync.Map // pattern -> compiledRegex
}

func newRegexCache(timeout time.Duration) *regexCache {
	return &regexCache{timeout: timeout}
}

func (c *regexCache) get(pattern string) compiledRegex {
	if v, ok := c.compiled.Load(pattern); ok {
		return v.(compiledRegex)
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	entry := compiledRegex{re: re, err: err}
	if err == nil {
		re.MatchTimeout = c.timeout
	}
	actual, loaded := c.compiled.LoadOrStore(pattern, entry)
	if !loaded && err != nil {
		regexCompileErrors.Inc()
		logrus.Warnf("Failed to compile regex trigger pattern `%v` due to error %v", pattern, err)
	}
	return actual.(compiledRegex)
}

//match runs a regex trigger against content. Timeouts and bad patterns count as a miss.
func (c *regexCache) match(t *guildmodels.Trigger, content string) bool {
	entry := c.get(t.Trigger)
	if entry.err != nil {
		return false
	}
	ok, err := entry.re.MatchString(content)
	if err != nil {
		regexTimeouts.Inc()
		logrus.WithFields(logrus.Fields{
			"trigger_id": t.ID,
			"guild_id":   t.GuildID,
		}).Warnf("Regex trigger gave up matching after %v: %v", c.timeout, err)
		return false
	}
	return ok
}

//retain drops every compiled pattern that is not in live, returning how many were dropped
func (c *regexCache) retain(live map[string]struct{}) int {
	dropped := 0
	c.compiled.Range(func(key, _ any) bool {
		if _, ok := live[key.(string)]; !ok {
			c.compiled.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

func (c *regexCache) size() int {
	n := 0
	c.compiled.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
