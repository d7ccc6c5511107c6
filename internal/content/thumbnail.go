package content

import "regexp"

var imgSrcPattern = regexp.MustCompile(`(?i)<img\s[^>]*?src\s*=\s*["']([^"'>]+)["']`)

// Thumbnail picks the first embedded image of an HTML body, falling back to
// the attached media URL. Returns "" when neither exists.
func Thumbnail(html, attachmentURL string) string {
	if match := imgSrcPattern.FindStringSubmatch(html); match != nil {
		return match[1]
	}
	return attachmentURL
}
