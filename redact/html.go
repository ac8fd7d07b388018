package redact

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlNode adapts an x/net/html element node to Node.
type htmlNode struct {
	n *html.Node
}

// HTMLNode wraps an element node. Non-element nodes are not walked.
func HTMLNode(n *html.Node) Node {
	return htmlNode{n: n}
}

func (h htmlNode) HasChildElements() bool {
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

func (h htmlNode) ChildElements() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, htmlNode{n: c})
		}
	}
	return out
}

func (h htmlNode) TextContent() string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode:
				collect(c)
			}
		}
	}
	collect(h.n)
	return sb.String()
}

// SetTextContent drops every child and appends a single text node, as the
// DOM textContent setter does.
func (h htmlNode) SetTextContent(text string) {
	for c := h.n.FirstChild; c != nil; {
		next := c.NextSibling
		h.n.RemoveChild(c)
		c = next
	}
	if text != "" {
		h.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func (h htmlNode) RemoveAttribute(name string) {
	if len(h.n.Attr) == 0 {
		return
	}
	kept := h.n.Attr[:0]
	for _, a := range h.n.Attr {
		if !strings.EqualFold(a.Key, name) {
			kept = append(kept, a)
		}
	}
	h.n.Attr = kept
}

func (h htmlNode) RedactOwnText(replace func(string) string) {
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			c.Data = replace(c.Data)
		}
	}
}

// RedactMarkup parses markup as the content of a <body>, redacts every
// top-level element and returns the serialised result (the body's inner
// HTML). Top-level text is redacted as mixed content.
func (r *Redactor) RedactMarkup(ctx context.Context, markup string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return "", fmt.Errorf("redact: parse: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	if err := r.Redact(ctx, HTMLNode(body)); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("redact: render: %w", err)
		}
	}
	return buf.String(), nil
}
