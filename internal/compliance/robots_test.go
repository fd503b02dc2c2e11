package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRobotsTxt_EmptyContent(t *testing.T) {
	allows, delay := parseRobotsTxt("", "autoinquirybot")

	assert.True(t, allows)
	assert.Equal(t, 1.0, delay)
}

func TestParseRobotsTxt_WildcardDisallowAll(t *testing.T) {
	content := `User-agent: *
Disallow: /
`
	allows, _ := parseRobotsTxt(content, "autoinquirybot")
	assert.False(t, allows)
}

func TestParseRobotsTxt_PartialDisallowStillAllows(t *testing.T) {
	content := `User-agent: *
Disallow: /admin
Disallow: /private/
`
	allows, _ := parseRobotsTxt(content, "autoinquirybot")
	assert.True(t, allows)
}

func TestParseRobotsTxt_BotBlockOverridesWildcard(t *testing.T) {
	// A wildcard full disallow is irrelevant once the bot has its own block.
	content := `User-agent: *
Disallow: /

User-agent: autoinquirybot
Disallow: /admin
`
	allows, _ := parseRobotsTxt(content, "autoinquirybot")
	assert.True(t, allows)
}

func TestParseRobotsTxt_BotBlockDisallowsDespiteOpenWildcard(t *testing.T) {
	content := `User-agent: *
Disallow:

User-agent: autoinquirybot
Disallow: /
`
	allows, _ := parseRobotsTxt(content, "autoinquirybot")
	assert.False(t, allows)
}

func TestParseRobotsTxt_CrawlDelayFallsBackToWildcard(t *testing.T) {
	// Crawl-delay is the one directive the bot block inherits when unset.
	content := `User-agent: *
Crawl-delay: 7

User-agent: autoinquirybot
Disallow: /admin
`
	allows, delay := parseRobotsTxt(content, "autoinquirybot")

	assert.True(t, allows)
	assert.Equal(t, 7.0, delay)
}

func TestParseRobotsTxt_BotCrawlDelayWins(t *testing.T) {
	content := `User-agent: *
Crawl-delay: 30

User-agent: autoinquirybot
Crawl-delay: 3
`
	_, delay := parseRobotsTxt(content, "autoinquirybot")
	assert.Equal(t, 3.0, delay)
}

func TestParseRobotsTxt_WildcardDelayKeepsMaximum(t *testing.T) {
	content := `User-agent: *
Crawl-delay: 2

User-agent: *
Crawl-delay: 9
`
	_, delay := parseRobotsTxt(content, "autoinquirybot")
	assert.Equal(t, 9.0, delay)
}

func TestParseRobotsTxt_OtherBotBlockIgnored(t *testing.T) {
	content := `User-agent: Googlebot
Disallow: /
Crawl-delay: 60
`
	allows, delay := parseRobotsTxt(content, "autoinquirybot")

	assert.True(t, allows)
	assert.Equal(t, 1.0, delay)
}

func TestParseRobotsTxt_CaseInsensitiveDirectives(t *testing.T) {
	content := `USER-AGENT: AutoInquiryBot
DISALLOW: /
`
	allows, _ := parseRobotsTxt(content, "autoinquirybot")
	assert.False(t, allows)
}

func TestParseRobotsTxt_CommentsAndBlankLinesSkipped(t *testing.T) {
	content := `# full lockdown below
User-agent: *

# really everything
Disallow: /
`
	allows, _ := parseRobotsTxt(content, "autoinquirybot")
	assert.False(t, allows)
}

func TestParseRobotsTxt_MalformedCrawlDelayIgnored(t *testing.T) {
	content := `User-agent: *
Crawl-delay: soon
`
	_, delay := parseRobotsTxt(content, "autoinquirybot")
	assert.Equal(t, 1.0, delay)
}
