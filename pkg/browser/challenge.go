package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// Markers of the interstitial shown to suspected automated clients.
const (
	ChallengeTitleMarker = "Just a moment"
	ChallengeBodyMarker  = "Verifying you are human"
)

// DetectChallenge reports whether the page is a bot-challenge interstitial.
// title is the live document title; rawHTML is the serialised page.
// Unparseable HTML is treated as "no challenge".
func DetectChallenge(title, rawHTML string) bool {
	if strings.Contains(title, ChallengeTitleMarker) {
		return true
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}

	if strings.Contains(extractTitle(doc), ChallengeTitleMarker) {
		return true
	}
	return strings.Contains(bodyText(doc), ChallengeBodyMarker)
}

// extractTitle finds the text of the first <title> element.
func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// bodyText approximates the rendered text of <body>. Adjacent inline text
// runs together, block elements break words, whitespace is collapsed and
// script-like elements are skipped.
func bodyText(doc *html.Node) string {
	body := findElement(doc, "body")
	if body == nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isSkippedElement(n.Data) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		block := n.Type == html.ElementNode && isBlockElement(n.Data)
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	walk(body)
	return strings.Join(strings.Fields(b.String()), " ")
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

func isSkippedElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func isBlockElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "address", "article", "aside", "blockquote", "br", "dd", "details",
		"dialog", "div", "dl", "dt", "fieldset", "figcaption", "figure",
		"footer", "form", "h1", "h2", "h3", "h4", "h5", "h6", "header", "hr",
		"li", "main", "nav", "ol", "p", "pre", "section", "summary", "table",
		"td", "th", "tr", "ul":
		return true
	}
	return false
}
