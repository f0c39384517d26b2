// Package sanitize enforces the HTML allow-list on rendered fragments.
// Disallowed markup is stripped, never escaped: dangerous subtrees vanish,
// unknown wrappers are unwrapped around their children, and unsafe URL
// schemes drop the attribute that carries them. Sanitization runs on every
// fragment regardless of origin; synthesized markup gets no exemption.
package sanitize

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sentinel errors for sanitization.
var (
	// ErrViolation indicates markup outside the allow-list.
	ErrViolation = errors.New("disallowed markup")
)

// allowedTags is the closed element vocabulary. Everything the renderer
// emits is here, plus the harmless formatting tags raw-HTML passthrough
// may legitimately carry.
var allowedTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "blockquote": true, "br": true,
	"caption": true, "code": true, "dd": true, "del": true, "details": true,
	"div": true, "dl": true, "dt": true, "em": true, "figcaption": true,
	"figure": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "i": true, "img": true, "kbd": true,
	"li": true, "nav": true, "ol": true, "p": true, "pre": true, "s": true,
	"samp": true, "section": true, "small": true, "span": true,
	"strong": true, "sub": true, "summary": true, "sup": true, "table": true,
	"tbody": true, "td": true, "tfoot": true, "th": true, "thead": true,
	"tr": true, "u": true, "ul": true, "var": true,
}

// droppedTags lose their entire subtree. Anything not listed here or in
// allowedTags is unwrapped instead, keeping its children.
var droppedTags = map[string]bool{
	"applet": true, "base": true, "button": true, "embed": true,
	"form": true, "frame": true, "frameset": true, "iframe": true,
	"input": true, "link": true, "meta": true, "noscript": true,
	"object": true, "script": true, "select": true, "style": true,
	"template": true, "textarea": true, "title": true,
}

// globalAttrs are permitted on every allowed element.
var globalAttrs = map[string]bool{
	"class": true,
	"id":    true,
	"title": true,
}

// taggedAttrs are permitted only on the named element.
var taggedAttrs = map[string]map[string]bool{
	"a":       {"href": true},
	"img":     {"src": true, "alt": true, "width": true, "height": true},
	"details": {"open": true},
	"ol":      {"start": true},
	"td":      {"colspan": true, "rowspan": true},
	"th":      {"colspan": true, "rowspan": true},
	"span":    {"data-email": true},
}

// Sanitize reduces fragment to the allow-list and returns the cleaned
// markup. The operation is idempotent: cleaned output passes through
// unchanged.
func Sanitize(fragment []byte) ([]byte, error) {
	container, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}

	clean(container)

	var sb strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return nil, fmt.Errorf("render sanitized fragment: %w", err)
		}
	}
	return []byte(sb.String()), nil
}

// Verify reports the first allow-list violation in fragment without
// modifying it. Sanitized output always verifies clean.
func Verify(fragment []byte) error {
	container, err := parseFragment(fragment)
	if err != nil {
		return err
	}
	return verifyNode(container)
}

// parseFragment parses with a body context so the fragment is not wrapped
// in html/head/body scaffolding, then gathers the nodes under a single
// container for uniform traversal.
func parseFragment(fragment []byte) (*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// clean walks n's children, removing dropped subtrees, unwrapping unknown
// elements, and filtering attributes on the survivors. Hoisted children
// are revisited in their new position.
func clean(n *html.Node) {
	c := n.FirstChild
	for c != nil {
		next := c.NextSibling
		switch c.Type {
		case html.ElementNode:
			name := strings.ToLower(c.Data)
			switch {
			case droppedTags[name]:
				n.RemoveChild(c)
			case !allowedTags[name]:
				next = unwrap(n, c)
			default:
				c.Attr = cleanAttrs(name, c.Attr)
				clean(c)
			}
		case html.TextNode:
			// Text survives; html.Render re-escapes it.
		default:
			// Comments, doctypes, and raw nodes carry no document content.
			n.RemoveChild(c)
		}
		c = next
	}
}

// unwrap hoists n's children into parent at n's position and removes n.
// Returns the node to continue cleaning from.
func unwrap(parent, n *html.Node) *html.Node {
	first := n.FirstChild
	for n.FirstChild != nil {
		child := n.FirstChild
		n.RemoveChild(child)
		parent.InsertBefore(child, n)
	}
	next := n.NextSibling
	parent.RemoveChild(n)
	if first != nil {
		return first
	}
	return next
}

// cleanAttrs filters an element's attributes against the allow-list and
// the URL scheme policy.
func cleanAttrs(tag string, attrs []html.Attribute) []html.Attribute {
	var kept []html.Attribute
	for _, a := range attrs {
		if a.Namespace != "" {
			continue
		}
		key := strings.ToLower(a.Key)
		if !globalAttrs[key] && !taggedAttrs[tag][key] {
			continue
		}
		if urlAttr(key) && !urlAllowed(a.Val) {
			continue
		}
		a.Key = key
		kept = append(kept, a)
	}
	return kept
}

func urlAttr(key string) bool {
	return key == "href" || key == "src"
}

// urlAllowed accepts http, https, and mailto schemes plus scheme-less
// values (relative paths and fragments). Control characters are stripped
// before the scheme check so encoded javascript: variants cannot sneak
// through.
func urlAllowed(raw string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, raw)
	lower := strings.ToLower(cleaned)

	for i := 0; i < len(lower); i++ {
		switch lower[i] {
		case ':':
			scheme := lower[:i]
			return scheme == "http" || scheme == "https" || scheme == "mailto"
		case '/', '?', '#':
			return true
		}
	}
	return true
}

func verifyNode(n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			name := strings.ToLower(c.Data)
			if !allowedTags[name] {
				return fmt.Errorf("%w: element <%s>", ErrViolation, name)
			}
			for _, a := range c.Attr {
				key := strings.ToLower(a.Key)
				if a.Namespace != "" || (!globalAttrs[key] && !taggedAttrs[name][key]) {
					return fmt.Errorf("%w: attribute %q on <%s>", ErrViolation, a.Key, name)
				}
				if urlAttr(key) && !urlAllowed(a.Val) {
					return fmt.Errorf("%w: unsafe url in %s on <%s>", ErrViolation, key, name)
				}
			}
			if err := verifyNode(c); err != nil {
				return err
			}
		case html.TextNode:
			// Fine anywhere.
		default:
			return fmt.Errorf("%w: non-content node", ErrViolation)
		}
	}
	return nil
}
