package mimemail

import (
	"bytes"
	"hemnet-images/internal/core/domain"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inboundMessage(t *testing.T, subject string, htmlBody string) domain.InboundMessage {
	t.Helper()
	root, err := enmime.Builder().
		From("Hemnet", "noreply@hemnet.se").
		To("", "me@example.se").
		Subject(subject).
		HTML([]byte(htmlBody)).
		Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, root.Encode(&buf))
	return domain.InboundMessage{Content: buf.String()}
}

func TestCompose_RoundTrip(t *testing.T) {
	inbound := inboundMessage(t, "Nytt slutpris på Storgatan 1",
		`<p>Slutpris</p><img src="https://bilder.hemnet.se/images/itemgallery/abc123.jpg">`)
	images := []domain.Image{
		{ID: "img-a", Data: []byte{0xFF, 0xD8, 0x01}},
		{ID: "img-b", Data: []byte{0xFF, 0xD8, 0x02}},
	}

	raw, err := NewComposer().Compose(inbound, images, "Bot <bot@example.se>", []string{"a@example.se", "b@example.se"})
	require.NoError(t, err)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Nytt slutpris på Storgatan 1", env.GetHeader("Subject"))
	assert.Contains(t, env.HTML, "itemgallery/abc123.jpg")
	assert.Contains(t, env.GetHeader("From"), "bot@example.se")

	to, err := env.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "a@example.se", to[0].Address)
	assert.Equal(t, "b@example.se", to[1].Address)

	require.Len(t, env.Inlines, 2)
	assert.Equal(t, "image1.jpg", env.Inlines[0].FileName)
	assert.Equal(t, images[0].Data, env.Inlines[0].Content)
	assert.Equal(t, "image2.jpg", env.Inlines[1].FileName)
	assert.Equal(t, images[1].Data, env.Inlines[1].Content)
}

func TestCompose_SubjectFallbacks(t *testing.T) {
	// письмо без темы и без HTML-части
	plain := domain.InboundMessage{
		Subject: "Från SES",
		Content: "From: noreply@hemnet.se\r\n" +
			"To: me@example.se\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Slutpris: 3 100 000 kr <3 rum>\r\n",
	}

	raw, err := NewComposer().Compose(plain, nil, "bot@example.se", []string{"a@example.se"})
	require.NoError(t, err)
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Från SES", env.GetHeader("Subject"))
	assert.Contains(t, env.HTML, "<pre>Slutpris: 3 100 000 kr &lt;3 rum&gt;")

	plain.Subject = ""
	raw, err = NewComposer().Compose(plain, nil, "bot@example.se", []string{"a@example.se"})
	require.NoError(t, err)
	env, err = enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hemnet slutpris", env.GetHeader("Subject"))
}

func TestCompose_BadAddresses(t *testing.T) {
	inbound := inboundMessage(t, "x", "<p>x</p>")

	_, err := NewComposer().Compose(inbound, nil, "not an address", []string{"a@example.se"})
	assert.True(t, domain.IsKind(err, domain.KindSend))

	_, err = NewComposer().Compose(inbound, nil, "bot@example.se", []string{"nope"})
	assert.True(t, domain.IsKind(err, domain.KindSend))
}
