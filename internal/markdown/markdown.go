// Package markdown converts markdown source documents to plain text for
// translation. Paragraph breaks and parenthesized original-language spans
// survive the conversion so chunking and sentence alignment still see them.
package markdown

import (
	"regexp"
	"strings"

	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// entityDecoder reverses the escaping the HTML renderer applies to text
// content. Only the entities the renderer actually emits are handled.
var entityDecoder = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// ToPlainText renders markdown and strips the markup, leaving translatable
// prose. Link and emphasis text is kept, URLs and tags are dropped, and runs
// of blank lines collapse to a single paragraph break.
func ToPlainText(src []byte) string {
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.FlagsNone})
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(src)
	rendered := string(md.Render(doc, renderer))

	text := stripTags(rendered)
	text = entityDecoder.Replace(text)
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripTags removes <...> tag runs from rendered HTML. Parenthesized spans
// in the text content pass through untouched.
func stripTags(htmlContent string) string {
	var sb strings.Builder
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				sb.WriteRune(ch)
			}
		}
	}

	return sb.String()
}
