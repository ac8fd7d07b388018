// Package redact rewrites a DOM tree so that it keeps its shape but loses
// its content: leaf text becomes placeholder text of the same length and
// value-carrying attributes are dropped.
//
// The walk is written against the small Node interface so it runs on any
// tree: the x/net/html adapter in this package, or a synthetic fixture.
package redact

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultFiller is the placeholder text leaf content is cut from.
const DefaultFiller = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor " +
	"incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation " +
	"ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit " +
	"in voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint occaecat cupidatat " +
	"non proident, sunt in culpa qui officia deserunt mollit anim id est laborum."

// Node is the minimal element view the redactor needs.
type Node interface {
	HasChildElements() bool
	ChildElements() []Node
	TextContent() string
	SetTextContent(text string)
	RemoveAttribute(name string)
}

// OwnTextRedactor is implemented by nodes that can rewrite the text nodes
// sitting directly beside their child elements (mixed content).
type OwnTextRedactor interface {
	RedactOwnText(replace func(string) string)
}

// Redactor walks a tree and replaces its content.
type Redactor struct {
	attrs  []string
	filler []rune
}

// Option configures a Redactor.
type Option func(*Redactor)

// WithMarkedAttributes sets the attributes removed from every element.
// Default: value.
func WithMarkedAttributes(names ...string) Option {
	return func(r *Redactor) { r.attrs = names }
}

// WithFiller sets the placeholder text. Empty text keeps the default.
func WithFiller(text string) Option {
	return func(r *Redactor) {
		if strings.TrimSpace(text) != "" {
			r.filler = []rune(text)
		}
	}
}

// New creates a Redactor.
func New(opts ...Option) *Redactor {
	r := &Redactor{
		attrs:  []string{"value"},
		filler: []rune(DefaultFiller),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Redact rewrites the tree rooted at root in place. It stops early with
// ctx.Err() when ctx is cancelled; the tree is then partially redacted.
func (r *Redactor) Redact(ctx context.Context, root Node) error {
	if root == nil {
		return nil
	}
	return r.walk(ctx, root)
}

func (r *Redactor) walk(ctx context.Context, n Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.strip(n)

	if !n.HasChildElements() {
		r.leaf(n)
		return nil
	}

	if own, ok := n.(OwnTextRedactor); ok {
		own.RedactOwnText(r.replacePadded)
	}
	for _, child := range n.ChildElements() {
		if err := r.walk(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redactor) strip(n Node) {
	for _, name := range r.attrs {
		n.RemoveAttribute(name)
	}
}

// leaf replaces the text of an element without child elements. Elements
// without text, or with whitespace only, are left as they are.
func (r *Redactor) leaf(n Node) {
	text := n.TextContent()
	if strings.TrimSpace(text) == "" {
		return
	}
	n.SetTextContent(r.Replace(text))
}

// Replace returns the placeholder for text: as many runes as the trimmed
// text, never equal to it.
func (r *Redactor) Replace(text string) string {
	trimmed := strings.TrimSpace(text)
	out := r.fill(utf8.RuneCountInString(trimmed))
	if out == trimmed {
		// A fallback run that differs from the text in its first rune.
		first, _ := utf8.DecodeRuneInString(trimmed)
		alt := "x"
		if first == 'x' {
			alt = "y"
		}
		return strings.Repeat(alt, utf8.RuneCountInString(trimmed))
	}
	return out
}

// replacePadded keeps the surrounding whitespace of a mixed-content text
// node so inline spacing survives.
func (r *Redactor) replacePadded(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	start := strings.Index(text, trimmed)
	return text[:start] + r.Replace(trimmed) + text[start+len(trimmed):]
}

func (r *Redactor) fill(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = r.filler[i%len(r.filler)]
	}
	if unicode.IsSpace(out[0]) {
		out[0] = 'L'
	}
	if unicode.IsSpace(out[n-1]) {
		out[n-1] = '.'
	}
	return string(out)
}

// Filler returns n runes of the default placeholder text.
func Filler(n int) string {
	return New().fill(n)
}
