package hemnetfetcher

import (
	"hemnet-images/internal/core/domain"
	"regexp"
)

// Маркер встречается в странице как в "сыром" JSON, так и в HTML-экранированном виде.
var searchKeyPattern = regexp.MustCompile(`search_key(?:":"|&quot;:&quot;)([a-z0-9]+)`)

// ExtractSearchToken достает токен поиска из HTML страницы поиска.
func ExtractSearchToken(html string) (string, error) {
	match := searchKeyPattern.FindStringSubmatch(html)
	if match == nil {
		return "", domain.Errorf(domain.KindExtraction, "extract search token", "search_key marker not found")
	}
	if len(match) < 2 || match[1] == "" {
		return "", domain.Errorf(domain.KindExtraction, "extract search token", "search_key marker without token")
	}
	return match[1], nil
}
