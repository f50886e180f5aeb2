package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// cleanPage parses raw page HTML and reduces it to a size-bounded
// rendering that keeps semantic structure and the attributes an agent
// needs for element targeting, while dropping scripts, styles, and
// other noise.
func cleanPage(rawHTML string, maxLength int) (*PageSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	snapshot := &PageSnapshot{Title: findTitle(doc)}

	var builder strings.Builder
	written := 0
	snapshot.Truncated = renderNode(doc, &builder, &written, maxLength, 0)
	snapshot.HTML = builder.String()
	return snapshot, nil
}

// renderNode walks the tree, writing a compact form of each kept node.
// Returns true once the length budget is exhausted.
func renderNode(n *html.Node, out *strings.Builder, written *int, maxLength, depth int) bool {
	if *written >= maxLength {
		return true
	}

	switch n.Type {
	case html.CommentNode:
		return false

	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return false
		}
		if *written+len(text) > maxLength {
			out.WriteString(text[:maxLength-*written])
			out.WriteString("...")
			*written = maxLength
			return true
		}
		out.WriteString(text)
		*written += len(text)
		return false

	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedElements[tag] {
			return false
		}
		return renderElement(n, tag, out, written, maxLength, depth)

	default:
		return renderChildren(n, out, written, maxLength, depth)
	}
}

func renderElement(n *html.Node, tag string, out *strings.Builder, written *int, maxLength, depth int) bool {
	if depth > 0 && blockElements[tag] {
		out.WriteString("\n")
		out.WriteString(strings.Repeat("  ", depth))
	}

	out.WriteString("<")
	out.WriteString(tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, strings.ToLower(attr.Key)) {
			fmt.Fprintf(out, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	out.WriteString(">")
	*written += len(tag) + 2

	truncated := renderChildren(n, out, written, maxLength, depth+1)

	if !voidElements[tag] {
		if blockElements[tag] {
			out.WriteString("\n")
			out.WriteString(strings.Repeat("  ", depth))
		}
		fmt.Fprintf(out, "</%s>", tag)
		*written += len(tag) + 3
	}
	return truncated
}

func renderChildren(n *html.Node, out *strings.Builder, written *int, maxLength, depth int) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if renderNode(c, out, written, maxLength, depth) {
			return true
		}
	}
	return false
}

// droppedElements are removed entirely, subtree included.
var droppedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
}

// blockElements get newline/indent formatting for readability.
var blockElements = map[string]bool{
	"div": true, "p": true, "section": true, "article": true,
	"header": true, "footer": true, "nav": true, "main": true,
	"aside": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ul": true, "ol": true, "li": true,
	"table": true, "tr": true, "td": true, "th": true,
	"form": true, "fieldset": true, "blockquote": true, "pre": true,
}

// voidElements have no closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"embed": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "param": true, "source": true,
	"track": true, "wbr": true,
}

// keepAttribute reports whether an attribute is useful for element
// targeting and should survive cleaning.
func keepAttribute(tag, attr string) bool {
	switch attr {
	case "id", "class", "role", "aria-label", "aria-describedby":
		return true
	}
	if strings.HasPrefix(attr, "data-") {
		return true
	}

	switch tag {
	case "a":
		return attr == "href" || attr == "target"
	case "img":
		return attr == "src" || attr == "alt"
	case "input", "textarea", "select":
		return attr == "name" || attr == "type" || attr == "placeholder" || attr == "value"
	case "button":
		return attr == "type" || attr == "name"
	case "form":
		return attr == "action" || attr == "method"
	}
	return false
}

// findTitle returns the first <title> text in the document.
func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
