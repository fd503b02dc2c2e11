package compliance

import (
	"strconv"
	"strings"
)

// robotsRules is the subset of a robots.txt user-agent block this engine acts
// on. Other bots' blocks are inert: we never inherit a third-party bot's
// restrictions.
type robotsRules struct {
	disallowAll bool
	crawlDelay  *float64
}

// parseRobotsTxt extracts the effective crawl rules for the named bot.
// A block addressed to the bot fully overrides the wildcard block: directives
// are not merged across the two. The only exception is crawl-delay, which
// falls back to the wildcard's value when the bot block does not set one.
func parseRobotsTxt(content, botName string) (allowsCrawling bool, crawlDelay float64) {
	allowsCrawling = true
	crawlDelay = 1.0
	if content == "" {
		return
	}

	var wildcard, specific robotsRules
	hasSpecificBlock := false

	current := "" // lowercased user-agent of the block being read
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "user-agent:"):
			current = strings.TrimSpace(lower[len("user-agent:"):])
			if current == strings.ToLower(botName) {
				hasSpecificBlock = true
			}
		case strings.HasPrefix(lower, "disallow:"):
			path := strings.TrimSpace(line[len("disallow:"):])
			if path != "/" {
				continue
			}
			if current == strings.ToLower(botName) {
				specific.disallowAll = true
			} else if current == "*" {
				wildcard.disallowAll = true
			}
		case strings.HasPrefix(lower, "crawl-delay:"):
			value := strings.TrimSpace(line[len("crawl-delay:"):])
			d, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			if current == strings.ToLower(botName) {
				specific.crawlDelay = &d
			} else if current == "*" {
				if wildcard.crawlDelay == nil || d > *wildcard.crawlDelay {
					wildcard.crawlDelay = &d
				}
			}
		}
	}

	effective := wildcard
	if hasSpecificBlock {
		effective = specific
		if effective.crawlDelay == nil {
			effective.crawlDelay = wildcard.crawlDelay
		}
	}

	if effective.disallowAll {
		allowsCrawling = false
	}
	if effective.crawlDelay != nil {
		crawlDelay = *effective.crawlDelay
	}
	return
}
