package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
	"golang.org/x/net/html"
)

// HTMLParser converts HTML into markdown-flavoured text.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "parse html",
			Context: map[string]string{"file": filename},
			Err:     err,
		}
	}

	var out outline
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				out.heading(level, textContent(n))
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript", "template":
				return
			case "p", "td", "th", "blockquote", "pre", "dt", "dd", "figcaption":
				out.paragraph(textContent(n))
				return
			case "li":
				if t := textContent(n); t != "" {
					out.paragraph("- " + t)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	extra := document.Metadata{}
	if title := findElement(doc, "title"); title != nil {
		// The <title> element wins over the first h1.
		out.title = textContent(title)
	}
	if head := findElement(doc, "head"); head != nil {
		collectMeta(head, extra)
	}
	if root := findElement(doc, "html"); root != nil {
		for _, a := range root.Attr {
			if a.Key == "lang" {
				extra[document.KeyLanguage] = a.Val
			}
		}
	}
	return out.result(extra), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// collectMeta copies <meta name="..." content="..."> pairs for the keys
// the metadata tree also produces.
func collectMeta(head *html.Node, into document.Metadata) {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "meta" {
			continue
		}
		var name, content string
		for _, a := range c.Attr {
			switch strings.ToLower(a.Key) {
			case "name":
				name = strings.ToLower(strings.TrimSpace(a.Val))
			case "content":
				content = strings.TrimSpace(a.Val)
			}
		}
		switch name {
		case "author":
			into[document.KeyAuthors] = []string{content}
		case "description":
			into[document.KeyDescription] = content
		case "keywords":
			var kws []string
			for kw := range strings.SplitSeq(content, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					kws = append(kws, kw)
				}
			}
			into[document.KeyKeywords] = kws
		case "date", "subject":
			into[name] = content
		}
	}
}
