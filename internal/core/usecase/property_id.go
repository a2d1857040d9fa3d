package usecase

import (
	"hemnet-images/internal/core/domain"
	"regexp"
	"strings"
)

// Ссылка на галерею в письме от Hemnet, например
// https://bilder.hemnet.se/images/itemgallery_cut/3f/6e/3f6e8d0c1a.jpg
var itemGalleryPattern = regexp.MustCompile(`https?://[^\s"'<>]*/itemgallery.+?([a-z0-9]+)\.jpg`)

// ExtractPropertyID находит PropertyID в тексте письма.
// Перед поиском убираются мягкие переносы quoted-printable.
func ExtractPropertyID(content string) (string, error) {
	cleaned := strings.ReplaceAll(content, "=\r\n", "")
	cleaned = strings.ReplaceAll(cleaned, "\r\n", "")

	match := itemGalleryPattern.FindStringSubmatch(cleaned)
	if match == nil {
		return "", domain.Errorf(domain.KindPatternNotFound, "extract property id", "no itemgallery image link in content")
	}
	if len(match) < 2 || match[1] == "" {
		return "", domain.Errorf(domain.KindPatternNotFound, "extract property id", "itemgallery link without property id")
	}
	return match[1], nil
}
