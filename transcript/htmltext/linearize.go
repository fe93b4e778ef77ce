// Package htmltext turns a parsed HTML tree into markdown-like plain text that keeps
// block boundaries, so line-oriented role detection can run over it.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Stripped lists the elements removed before linearizing: scripts, styles and page chrome.
var Stripped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

var blockElements = map[atom.Atom]bool{
	atom.Address:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Blockquote: true,
	atom.Dd:         true,
	atom.Div:        true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Fieldset:   true,
	atom.Figcaption: true,
	atom.Figure:     true,
	atom.Form:       true,
	atom.Hr:         true,
	atom.Li:         true,
	atom.Main:       true,
	atom.Ol:         true,
	atom.P:          true,
	atom.Section:    true,
	atom.Table:      true,
	atom.Tr:         true,
	atom.Ul:         true,
}

var headingLevel = map[atom.Atom]int{
	atom.H1: 1,
	atom.H2: 2,
	atom.H3: 3,
	atom.H4: 4,
	atom.H5: 5,
	atom.H6: 6,
}

// Linearize renders n and its descendants. Elements in Stripped and comments are skipped.
func Linearize(n *html.Node) string {
	w := &writer{}
	w.walk(n)
	return w.finish()
}

// Parse parses src and linearizes the whole document.
func Parse(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}
	return Linearize(doc), nil
}

type writer struct {
	sb strings.Builder
	// pendingSpace is set after collapsed whitespace so a single space is written
	// before the next word on the same line.
	pendingSpace bool
	pre          int
}

func (w *writer) walk(n *html.Node) {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if Stripped[n.DataAtom] {
			return
		}
		w.element(n)
		return
	}
	w.children(n)
}

func (w *writer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *writer) element(n *html.Node) {
	switch {
	case n.DataAtom == atom.Br:
		w.newline()
	case n.DataAtom == atom.Img:
		w.inline("![" + attr(n, "alt") + "](" + attr(n, "src") + ")")
	case headingLevel[n.DataAtom] > 0:
		w.blockBreak()
		w.inline(strings.Repeat("#", headingLevel[n.DataAtom]) + " ")
		w.pendingSpace = false
		w.children(n)
		w.blockBreak()
	case n.DataAtom == atom.Strong || n.DataAtom == atom.B:
		w.inline("**")
		w.pendingSpace = false
		w.children(n)
		w.trimTrailingSpace()
		w.sb.WriteString("**")
	case n.DataAtom == atom.Pre:
		w.blockBreak()
		w.pre++
		w.children(n)
		w.pre--
		w.blockBreak()
	case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
		w.children(n)
		w.pendingSpace = true
	case blockElements[n.DataAtom]:
		w.blockBreak()
		w.children(n)
		w.blockBreak()
	default:
		w.children(n)
	}
}

func (w *writer) text(s string) {
	if w.pre > 0 {
		w.sb.WriteString(s)
		w.pendingSpace = false
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.pendingSpace = true
		}
		return
	}
	if startsWithSpace(s) {
		w.pendingSpace = true
	}
	for i, f := range fields {
		if i > 0 {
			w.pendingSpace = true
		}
		w.inline(f)
	}
	if endsWithSpace(s) {
		w.pendingSpace = true
	}
}

func (w *writer) inline(s string) {
	if w.pendingSpace && !w.atLineStart() {
		w.sb.WriteByte(' ')
	}
	w.pendingSpace = false
	w.sb.WriteString(s)
}

func (w *writer) newline() {
	w.sb.WriteByte('\n')
	w.pendingSpace = false
}

// blockBreak ends the current line unless already at a line start.
func (w *writer) blockBreak() {
	if !w.atLineStart() {
		w.newline()
	}
	w.pendingSpace = false
}

func (w *writer) atLineStart() bool {
	s := w.sb.String()
	return s == "" || strings.HasSuffix(s, "\n")
}

func (w *writer) trimTrailingSpace() {
	s := w.sb.String()
	t := strings.TrimRight(s, " ")
	if len(t) != len(s) {
		w.sb.Reset()
		w.sb.WriteString(t)
	}
}

func (w *writer) finish() string {
	lines := strings.Split(w.sb.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			blank++
			if blank > 1 {
				continue
			}
			l = ""
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\r\n\f") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\r\n\f") != s
}

// Title returns the trimmed text of the document's <title> element.
func Title(doc *html.Node) string {
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(sb.String()), " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}

// ScriptByID returns the raw text of the <script> element with the given id.
func ScriptByID(doc *html.Node, id string) (string, bool) {
	var found string
	var ok bool
	var find func(*html.Node)
	find = func(n *html.Node) {
		if ok {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && attr(n, "id") == id {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			found, ok = sb.String(), true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	return found, ok
}
