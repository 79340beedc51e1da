package service

import (
	"fmt"
	htmlstd "html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	iframeBlockPattern    = regexp.MustCompile(`(?is)<iframe\b([^>]*)>.*?</iframe\s*>`)
	iframeSrcPattern      = regexp.MustCompile(`(?i)\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	videoEmbedSrcPattern  = regexp.MustCompile(`^https://(?:www\.youtube\.com/embed/|player\.bilibili\.com/player\.html\?)`)
	videoEmbedTimePattern = regexp.MustCompile(`(?i)(\d+)(h|m|s)`) // for YouTube t=1h2m3s
)

// allowVideoEmbeds 允许编辑器插入的视频 iframe，仅限规范化后的播放器地址。
func allowVideoEmbeds(policy *bluemonday.Policy) *bluemonday.Policy {
	policy.AllowAttrs("src").Matching(videoEmbedSrcPattern).OnElements("iframe")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^ql-video$`)).OnElements("iframe")
	policy.AllowAttrs("allowfullscreen", "frameborder", "sandbox").OnElements("iframe")
	return policy
}

// normalizeVideoIframes rewrites every iframe to the canonical player URL of its video
// and removes iframes that do not point at a supported platform.
func normalizeVideoIframes(input string) string {
	if !strings.Contains(strings.ToLower(input), "<iframe") {
		return input
	}
	return iframeBlockPattern.ReplaceAllStringFunc(input, func(block string) string {
		attrs := iframeBlockPattern.FindStringSubmatch(block)[1]
		match := iframeSrcPattern.FindStringSubmatch(attrs)
		if match == nil {
			return ""
		}
		src := match[1]
		if src == "" {
			src = match[2]
		}
		embed, ok := parseVideoEmbed(htmlstd.UnescapeString(src))
		if !ok {
			return ""
		}
		return buildVideoEmbedHTML(embed)
	})
}

type videoEmbed struct {
	Platform string
	EmbedURL string
}

func parseVideoEmbed(raw string) (videoEmbed, bool) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "//") {
		trimmed = "https:" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed == nil {
		return videoEmbed{}, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return videoEmbed{}, false
	}
	if parsed.Hostname() == "" {
		return videoEmbed{}, false
	}

	if embed, ok := parseYouTubeEmbed(parsed); ok {
		return embed, true
	}
	if embed, ok := parseBilibiliEmbed(parsed); ok {
		return embed, true
	}
	return videoEmbed{}, false
}

func parseYouTubeEmbed(u *url.URL) (videoEmbed, bool) {
	host := strings.ToLower(u.Hostname())
	var videoID string

	switch {
	case host == "youtu.be":
		videoID = strings.Trim(strings.TrimPrefix(u.Path, "/"), "/")
	case isHostOrSubdomain(host, "youtube.com"), isHostOrSubdomain(host, "youtube-nocookie.com"):
		path := strings.Trim(u.Path, "/")
		switch {
		case path == "watch":
			videoID = u.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"):
			videoID = strings.TrimPrefix(path, "shorts/")
		case strings.HasPrefix(path, "embed/"):
			videoID = strings.TrimPrefix(path, "embed/")
		case strings.HasPrefix(path, "live/"):
			videoID = strings.TrimPrefix(path, "live/")
		}
	default:
		return videoEmbed{}, false
	}

	if i := strings.Index(videoID, "/"); i >= 0 {
		videoID = videoID[:i]
	}
	if videoID == "" || !isVideoIDSafe(videoID) {
		return videoEmbed{}, false
	}

	values := url.Values{}
	values.Set("rel", "0")
	values.Set("modestbranding", "1")
	values.Set("playsinline", "1")
	if start := parseYouTubeStart(u); start > 0 {
		values.Set("start", strconv.Itoa(start))
	}

	return videoEmbed{
		Platform: "youtube",
		EmbedURL: fmt.Sprintf("https://www.youtube.com/embed/%s?%s", videoID, values.Encode()),
	}, true
}

func parseYouTubeStart(u *url.URL) int {
	query := u.Query()
	if value := query.Get("start"); value != "" {
		return parseYouTubeTime(value)
	}
	if value := query.Get("t"); value != "" {
		return parseYouTubeTime(value)
	}
	return 0
}

func parseYouTubeTime(value string) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	if onlyDigits(trimmed) {
		seconds, err := strconv.Atoi(trimmed)
		if err == nil && seconds > 0 {
			return seconds
		}
		return 0
	}

	total := 0
	for _, match := range videoEmbedTimePattern.FindAllStringSubmatch(trimmed, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total
}

func parseBilibiliEmbed(u *url.URL) (videoEmbed, bool) {
	host := strings.ToLower(u.Hostname())
	if !isHostOrSubdomain(host, "bilibili.com") {
		return videoEmbed{}, false
	}

	values := url.Values{}
	page := 1
	if host == "player.bilibili.com" {
		// already an embed URL; keep only the ids
		q := u.Query()
		switch {
		case q.Get("bvid") != "":
			values.Set("bvid", q.Get("bvid"))
		case onlyDigits(q.Get("aid")):
			values.Set("aid", q.Get("aid"))
		default:
			return videoEmbed{}, false
		}
		if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
			page = p
		}
	} else {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) < 2 || segments[0] != "video" || segments[1] == "" {
			return videoEmbed{}, false
		}
		rawID := segments[1]
		lowerID := strings.ToLower(rawID)
		switch {
		case strings.HasPrefix(lowerID, "bv"):
			values.Set("bvid", rawID)
		case strings.HasPrefix(lowerID, "av") && onlyDigits(lowerID[2:]):
			values.Set("aid", lowerID[2:])
		case onlyDigits(rawID):
			values.Set("aid", rawID)
		default:
			return videoEmbed{}, false
		}
		if p, err := strconv.Atoi(u.Query().Get("p")); err == nil && p > 0 {
			page = p
		}
	}
	if bvid := values.Get("bvid"); bvid != "" && !isVideoIDSafe(bvid) {
		return videoEmbed{}, false
	}

	values.Set("page", strconv.Itoa(page))
	values.Set("high_quality", "1")
	values.Set("danmaku", "0")
	values.Set("autoplay", "0")

	return videoEmbed{
		Platform: "bilibili",
		EmbedURL: "https://player.bilibili.com/player.html?" + values.Encode(),
	}, true
}

func buildVideoEmbedHTML(embed videoEmbed) string {
	sandbox := ""
	if embed.Platform == "bilibili" {
		sandbox = ` sandbox="allow-scripts allow-same-origin allow-presentation"`
	}
	return fmt.Sprintf(
		`<iframe class="ql-video" src="%s" frameborder="0" allowfullscreen="true"%s></iframe>`,
		htmlstd.EscapeString(embed.EmbedURL),
		sandbox,
	)
}

func isVideoIDSafe(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return id != ""
}

func onlyDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

func isHostOrSubdomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
