package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxNameLength 商品名最大字符数
const MaxNameLength = 255

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// 商品名末尾的价格噪声，必须带货币符号或币种代码
	trailingPriceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)[\s\-–|:,/]*(?:US\s*)?[$€£¥]\s*\d+(?:[.,]\d+)*(?:\s*(?:USD|EUR|GBP|CNY|RMB))?\s*$`),
		regexp.MustCompile(`(?i)[\s\-–|:,/]*\d+(?:[.,]\d+)*\s*(?:USD|EUR|GBP|CNY|RMB|US\$|[$€£¥])\s*$`),
		regexp.MustCompile(`(?i)[\s\-–|:,/]*(?:USD|EUR|GBP|CNY|RMB)\s*\d+(?:[.,]\d+)*\s*$`),
	}

	slugRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// 转为换行的块级标签
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// 内容整体丢弃的标签
var skipTags = map[string]bool{"script": true, "style": true}

// CleanName 去标签、合并空白、去掉末尾价格、截断到 MaxNameLength
func CleanName(raw string) string {
	s := collapseWhitespace(stripTags(raw))

	for {
		trimmed := s
		for _, re := range trailingPriceRes {
			trimmed = re.ReplaceAllString(trimmed, "")
		}
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			break
		}
		s = trimmed
	}

	return strings.TrimSpace(truncateRunes(s, MaxNameLength))
}

// ProductName 清洗后的商品名，为空时回退为 "CJ Product <id>"
func ProductName(raw, externalID string) string {
	if name := CleanName(raw); name != "" {
		return name
	}
	return fmt.Sprintf("CJ Product %s", externalID)
}

// CleanDescription 去标签，块级标签转为换行，逐行合并空白
func CleanDescription(raw string) string {
	lines := strings.Split(stripTags(raw), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = collapseWhitespace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Slugify 小写、非字母数字转 "-"，追加外部 ID 保证唯一
func Slugify(name, externalID string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 200 {
		slug = strings.Trim(slug[:200], "-")
	}
	suffix := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(externalID), "-"), "-")
	switch {
	case slug == "":
		return suffix
	case suffix == "":
		return slug
	}
	return slug + "-" + suffix
}

func stripTags(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skipDepth++
			} else if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skipDepth > 0 {
				skipDepth--
			} else if blockTags[tag] {
				b.WriteByte('\n')
			}
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
