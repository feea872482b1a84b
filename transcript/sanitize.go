package transcript

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

// Row content arrives as the raw innerHTML of a user-authored element.
// Sanitize strips anything outside the UGC whitelist before the markup
// reaches consumers; RenderText turns the survivor into markdown for
// bots that work on plain text.
var (
	ugcPolicy   = bluemonday.UGCPolicy()
	stripPolicy = bluemonday.StrictPolicy()

	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
)

// Sanitize applies the UGC policy to raw row markup.
func Sanitize(raw string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(raw))
}

// RenderText converts sanitised row markup into markdown text. Markup
// the converter cannot handle degrades to the tag-stripped text rather
// than failing the event.
func RenderText(raw string) string {
	md, err := mdConverter.ConvertString(Sanitize(raw))
	if err != nil {
		return strings.TrimSpace(stripPolicy.Sanitize(raw))
	}
	return strings.TrimSpace(md)
}
