package redact

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// fakeNode is a synthetic tree fixture independent of any DOM.
type fakeNode struct {
	tag      string
	text     string
	attrs    map[string]string
	children []*fakeNode
}

func (f *fakeNode) HasChildElements() bool { return len(f.children) > 0 }

func (f *fakeNode) ChildElements() []Node {
	out := make([]Node, len(f.children))
	for i, c := range f.children {
		out[i] = c
	}
	return out
}

func (f *fakeNode) TextContent() string {
	if len(f.children) == 0 {
		return f.text
	}
	var sb strings.Builder
	for _, c := range f.children {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

func (f *fakeNode) SetTextContent(text string) { f.text = text; f.children = nil }

func (f *fakeNode) RemoveAttribute(name string) { delete(f.attrs, name) }

func el(tag, text string, children ...*fakeNode) *fakeNode {
	return &fakeNode{tag: tag, text: text, attrs: map[string]string{"value": "v-" + tag, "class": tag}, children: children}
}

func shape(f *fakeNode) []string {
	out := []string{f.tag}
	for _, c := range f.children {
		out = append(out, shape(c)...)
	}
	return out
}

func leaves(f *fakeNode) []*fakeNode {
	if len(f.children) == 0 {
		return []*fakeNode{f}
	}
	var out []*fakeNode
	for _, c := range f.children {
		out = append(out, leaves(c)...)
	}
	return out
}

func fixture() *fakeNode {
	return el("body", "",
		el("header", "", el("h1", "Account overview")),
		el("form", "",
			el("label", "Card number"),
			el("input", ""),
			el("div", "", el("span", "4111 1111 1111 1111"), el("em", "  "))),
		el("footer", "ok"),
	)
}

func TestRedact_PreservesShape(t *testing.T) {
	root := fixture()
	before := shape(root)

	if err := New().Redact(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	after := shape(root)
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Fatalf("shape changed:\nbefore %v\nafter  %v", before, after)
	}
}

func TestRedact_LeafTextLengthPreserved(t *testing.T) {
	root := fixture()
	var originals []string
	for _, l := range leaves(root) {
		originals = append(originals, l.text)
	}

	New().Redact(context.Background(), root)

	for i, l := range leaves(root) {
		orig := strings.TrimSpace(originals[i])
		if orig == "" {
			if l.text != originals[i] {
				t.Errorf("empty leaf %s changed: %q -> %q", l.tag, originals[i], l.text)
			}
			continue
		}
		if utf8.RuneCountInString(l.text) != utf8.RuneCountInString(orig) {
			t.Errorf("leaf %s: len %d, want %d (%q)", l.tag, utf8.RuneCountInString(l.text), utf8.RuneCountInString(orig), l.text)
		}
		if l.text == orig || strings.Contains(l.text, orig) {
			t.Errorf("leaf %s still contains original %q", l.tag, orig)
		}
	}
}

func TestRedact_RemovesMarkedAttributes(t *testing.T) {
	root := fixture()
	New().Redact(context.Background(), root)

	var check func(*fakeNode)
	check = func(f *fakeNode) {
		if _, ok := f.attrs["value"]; ok {
			t.Errorf("%s kept value attribute", f.tag)
		}
		if f.attrs["class"] != f.tag {
			t.Errorf("%s lost unrelated attribute", f.tag)
		}
		for _, c := range f.children {
			check(c)
		}
	}
	check(root)
}

func TestRedact_CustomAttributes(t *testing.T) {
	root := el("div", "", el("p", "x"))
	New(WithMarkedAttributes("class")).Redact(context.Background(), root)
	if _, ok := root.children[0].attrs["class"]; ok {
		t.Fatal("class not removed")
	}
	if _, ok := root.children[0].attrs["value"]; !ok {
		t.Fatal("value removed although not marked")
	}
}

func TestRedact_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Redact(ctx, fixture())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestRedact_NilRoot(t *testing.T) {
	if err := New().Redact(context.Background(), nil); err != nil {
		t.Fatalf("nil root: %v", err)
	}
}

func TestFiller(t *testing.T) {
	for _, n := range []int{0, 1, 5, 6, 12, 26, 500, 2000} {
		got := Filler(n)
		if utf8.RuneCountInString(got) != n {
			t.Errorf("Filler(%d): len %d", n, utf8.RuneCountInString(got))
		}
		if n > 0 && strings.TrimSpace(got) != got {
			t.Errorf("Filler(%d) has surrounding whitespace: %q", n, got)
		}
	}
}

func TestReplace_NeverEqualsInput(t *testing.T) {
	r := New()
	if got := r.Replace("Lorem"); got == "Lorem" {
		t.Fatalf("Replace returned the original: %q", got)
	}
	if got := r.Replace("  secret \n"); got == "secret" || utf8.RuneCountInString(got) != 6 {
		t.Fatalf("Replace: got %q", got)
	}
}

func TestReplace_FillerMatchingText(t *testing.T) {
	tests := []struct{ filler, text string }{
		{"x", "x"},
		{"x", "xxxx"},
		{"y", "yyy"},
		{"ab", "aba"},
	}
	for _, tt := range tests {
		got := New(WithFiller(tt.filler)).Replace(tt.text)
		if got == tt.text {
			t.Errorf("filler %q: Replace(%q) returned the original", tt.filler, tt.text)
		}
		if utf8.RuneCountInString(got) != utf8.RuneCountInString(tt.text) {
			t.Errorf("filler %q: Replace(%q) = %q, length changed", tt.filler, tt.text, got)
		}
	}
}

func TestRedactMarkup_Scenario(t *testing.T) {
	out, err := New().RedactMarkup(context.Background(), `<div><span>secret</span></div>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("original text survived: %s", out)
	}

	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	span := find(doc, "span")
	if span == nil {
		t.Fatalf("no span in %s", out)
	}
	text := HTMLNode(span).TextContent()
	if utf8.RuneCountInString(text) != len("secret") {
		t.Fatalf("span text %q: len %d, want 6", text, utf8.RuneCountInString(text))
	}
}

func TestRedactMarkup_FormValues(t *testing.T) {
	in := `<form><input name="card" value="4111111111111111"><textarea>my address</textarea><select><option value="x" selected>Paris</option></select></form>`
	out, err := New().RedactMarkup(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	for _, leak := range []string{"4111111111111111", "my address", "Paris", `value=`} {
		if strings.Contains(out, leak) {
			t.Errorf("leak %q in %s", leak, out)
		}
	}
	if !strings.Contains(out, `name="card"`) {
		t.Errorf("unrelated attribute removed: %s", out)
	}
}

func TestRedactMarkup_MixedContent(t *testing.T) {
	out, err := New().RedactMarkup(context.Background(), `<p>Hello <b>Alice</b>, your PIN is 1234</p>`)
	if err != nil {
		t.Fatal(err)
	}
	for _, leak := range []string{"Hello", "Alice", "1234", "PIN"} {
		if strings.Contains(out, leak) {
			t.Errorf("leak %q in %s", leak, out)
		}
	}
	if !strings.Contains(out, "<b>") {
		t.Errorf("structure lost: %s", out)
	}
}

func TestRedactMarkup_ShapeAndTags(t *testing.T) {
	in := `<main><ul><li>one</li><li>two</li><li><a href="/x">three</a></li></ul><img src="a.png"><br></main>`
	out, err := New().RedactMarkup(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if tags(in) != tags(out) {
		t.Fatalf("tags changed:\n in  %s\n out %s", tags(in), tags(out))
	}
}

func TestRedactMarkup_Empty(t *testing.T) {
	out, err := New().RedactMarkup(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Fatalf("empty markup: got %q", out)
	}
}

func find(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func tags(markup string) string {
	doc, _ := html.Parse(strings.NewReader(markup))
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(out, ",")
}
