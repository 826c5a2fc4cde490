package backend

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

const maxDetailWords = 60

// errorDetail turns a non-2xx response body into a one-line description.
// FastAPI-style {"detail": ...} bodies yield the detail, HTML error pages their
// visible text, and anything else the raw body.
func errorDetail(contentType string, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return truncateWords(cleanText(s), maxDetailWords)
		}
		// Validation errors carry a list of objects.
		return truncateWords(string(payload.Detail), maxDetailWords)
	}

	if strings.Contains(contentType, "html") || bytes.HasPrefix(body, []byte("<")) {
		if text := extractText(body); text != "" {
			return truncateWords(text, maxDetailWords)
		}
	}

	return truncateWords(cleanText(string(body)), maxDetailWords)
}

// extractText summarizes an HTML error page. Server and proxy error pages put
// the status in an <h1> (or the title) and the explanation in a <pre> or <p>;
// anything else falls back to the visible body text.
func extractText(htmlContent []byte) string {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	headline := cleanText(firstText(doc, "h1"))
	if headline == "" {
		headline = cleanText(firstText(doc, "title"))
	}
	message := cleanText(firstText(doc, "pre"))
	if message == "" {
		message = cleanText(firstText(doc, "p"))
	}

	switch {
	case headline != "" && message != "" && message != headline:
		return headline + ": " + message
	case message != "":
		return message
	case headline != "":
		return headline
	}

	// No recognizable structure: use whatever the page shows.
	return cleanText(bodyText(doc))
}

// firstText returns the text of the first element named tag, depth first.
func firstText(n *html.Node, tag string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		return nodeText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := firstText(c, tag); t != "" {
			return t
		}
	}
	return ""
}

// bodyText collects text nodes, skipping markup that is never shown.
func bodyText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "head", "script", "style", "nav", "footer":
			return ""
		}
	}

	var text strings.Builder
	if n.Type == html.TextNode {
		text.WriteString(n.Data)
		text.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(bodyText(c))
	}
	return text.String()
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(nodeText(c))
	}
	return text.String()
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
