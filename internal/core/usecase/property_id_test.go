package usecase

import (
	"hemnet-images/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPropertyID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain url",
			content: `<img src="https://bilder.hemnet.se/images/itemgallery/foo.jpg">`,
			want:    "foo",
		},
		{
			name:    "url after folded header line",
			content: "A=\r\n B\r\nhttps://bilder.hemnet.se/images/itemgallery/foo.jpg",
			want:    "foo",
		},
		{
			name:    "soft line breaks are removed",
			content: "A=\r\n B\r\nhttps://bilder.hemnet.se/images/itemgal=\r\nlery/abc123.jpg",
			want:    "abc123",
		},
		{
			name:    "nested path after itemgallery",
			content: "https://bilder.hemnet.se/images/itemgallery/cut/480x360/0a1b2c3d4e.jpg",
			want:    "0a1b2c3d4e",
		},
		{
			name:    "first match wins",
			content: "http://x.se/itemgallery/first.jpg https://x.se/itemgallery/second.jpg",
			want:    "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPropertyID(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPropertyID_NoMatch(t *testing.T) {
	for _, content := range []string{
		"",
		"https://bilder.hemnet.se/images/other/foo.jpg",
		"https://bilder.hemnet.se/images/itemgallery/foo.png",
	} {
		_, err := ExtractPropertyID(content)
		require.Error(t, err, content)
		assert.True(t, domain.IsKind(err, domain.KindPatternNotFound))
	}
}
