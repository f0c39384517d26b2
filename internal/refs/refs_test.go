package refs_test

import (
	"strings"
	"testing"

	gast "github.com/yuin/goldmark/ast"

	"github.com/alnah/go-pep2html/internal/markup"
	"github.com/alnah/go-pep2html/internal/refs"
)

func corpusResolver() *refs.Resolver {
	return refs.New(map[int]refs.Target{
		1: {Number: 1, Title: "PEP Purpose and Guidelines"},
		8: {Number: 8, Title: "Style Guide for Python Code"},
	}, "", "")
}

func collectKind(t *testing.T, tree gast.Node, kind gast.NodeKind) []gast.Node {
	t.Helper()
	var out []gast.Node
	_ = gast.Walk(tree, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if entering && n.Kind() == kind {
			out = append(out, n)
		}
		return gast.WalkContinue, nil
	})
	return out
}

// -----------------------------------------------------------------------------
// TestResolve - internal references rewrite to links or broken markers

func TestResolveKnownTarget(t *testing.T) {
	t.Parallel()

	body := []byte("See PEP 8 for style.\n")
	tree := markup.New().Parse(body)

	diags := corpusResolver().Resolve(20, tree)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}
	links := collectKind(t, tree, gast.KindLink)
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	link := links[0].(*gast.Link)
	if got := string(link.Destination); got != "/pep-0008/" {
		t.Errorf("Destination = %q, want /pep-0008/", got)
	}
	if got := string(link.Title); got != "Style Guide for Python Code" {
		t.Errorf("Title = %q", got)
	}
	if left := collectKind(t, tree, markup.KindProposalRef); len(left) != 0 {
		t.Errorf("%d unresolved proposal refs remain", len(left))
	}
}

func TestResolveUnknownTarget(t *testing.T) {
	t.Parallel()

	body := []byte("Superseded by PEP 999 eventually.\n")
	tree := markup.New().Parse(body)

	diags := corpusResolver().Resolve(8, tree)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Source != 8 || d.Target != 999 {
		t.Errorf("diagnostic = {source %d target %d}, want {8 999}", d.Source, d.Target)
	}
	if d.Label != "PEP 999" {
		t.Errorf("Label = %q", d.Label)
	}
	if d.Message == "" {
		t.Error("diagnostic message is empty")
	}

	broken := collectKind(t, tree, markup.KindBrokenRef)
	if len(broken) != 1 {
		t.Fatalf("got %d broken markers, want 1", len(broken))
	}
	b := broken[0].(*markup.BrokenRef)
	if b.Number != 999 || b.Label != "PEP 999" {
		t.Errorf("BrokenRef = {%d %q}", b.Number, b.Label)
	}
}

func TestResolveRFC(t *testing.T) {
	t.Parallel()

	body := []byte("Headers follow RFC 2822 here.\n")
	tree := markup.New().Parse(body)

	diags := corpusResolver().Resolve(1, tree)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}
	links := collectKind(t, tree, gast.KindLink)
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	got := string(links[0].(*gast.Link).Destination)
	if got != "https://datatracker.ietf.org/doc/html/rfc2822" {
		t.Errorf("Destination = %q", got)
	}
}

func TestResolveSelfReference(t *testing.T) {
	t.Parallel()

	body := []byte("This document updates PEP 1 itself.\n")
	tree := markup.New().Parse(body)

	if diags := corpusResolver().Resolve(1, tree); len(diags) != 0 {
		t.Fatalf("self reference produced diagnostics: %+v", diags)
	}
	if links := collectKind(t, tree, gast.KindLink); len(links) != 1 {
		t.Errorf("got %d links, want 1", len(links))
	}
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()

	body := []byte("See PEP 8 and PEP 999 and RFC 822.\n")
	tree := markup.New().Parse(body)
	r := corpusResolver()

	first := r.Resolve(1, tree)
	if len(first) != 1 {
		t.Fatalf("first pass diagnostics = %d, want 1", len(first))
	}
	linksAfterFirst := len(collectKind(t, tree, gast.KindLink))

	second := r.Resolve(1, tree)
	if len(second) != 0 {
		t.Errorf("second pass diagnostics = %+v, want none", second)
	}
	if got := len(collectKind(t, tree, gast.KindLink)); got != linksAfterFirst {
		t.Errorf("link count changed on re-run: %d -> %d", linksAfterFirst, got)
	}
	if got := len(collectKind(t, tree, markup.KindBrokenRef)); got != 1 {
		t.Errorf("broken marker count = %d after re-run, want 1", got)
	}
}

func TestResolveInsideDirective(t *testing.T) {
	t.Parallel()

	body := []byte(".. note::\n\n   Compare with PEP 8 first.\n")
	tree := markup.New().Parse(body)

	if diags := corpusResolver().Resolve(1, tree); len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}
	if links := collectKind(t, tree, gast.KindLink); len(links) != 1 {
		t.Errorf("got %d links inside directive content, want 1", len(links))
	}
}

// -----------------------------------------------------------------------------
// TestLink - direct link construction for synthesized content

func TestLink(t *testing.T) {
	t.Parallel()

	r := corpusResolver()

	node, diag := r.Link(2, 1, "PEP 1")
	if diag != nil {
		t.Fatalf("diagnostic = %+v, want nil", diag)
	}
	link, ok := node.(*gast.Link)
	if !ok {
		t.Fatalf("node is %T, want *ast.Link", node)
	}
	if got := string(link.Destination); got != "/pep-0001/" {
		t.Errorf("Destination = %q", got)
	}

	node, diag = r.Link(2, 404, "PEP 404")
	if diag == nil {
		t.Fatal("missing diagnostic for unknown target")
	}
	if diag.Source != 2 || diag.Target != 404 {
		t.Errorf("diagnostic = %+v", diag)
	}
	if _, ok := node.(*markup.BrokenRef); !ok {
		t.Errorf("node is %T, want *markup.BrokenRef", node)
	}
}

// -----------------------------------------------------------------------------
// TestURLTemplates - custom and default templates

func TestURLTemplates(t *testing.T) {
	t.Parallel()

	custom := refs.New(nil, "https://peps.python.org/pep-%04d/", "https://rfc-editor.org/rfc/rfc%d")
	if got := custom.DocumentURL(8); got != "https://peps.python.org/pep-0008/" {
		t.Errorf("DocumentURL = %q", got)
	}
	if got := custom.RFCURL(822); got != "https://rfc-editor.org/rfc/rfc822" {
		t.Errorf("RFCURL = %q", got)
	}

	defaulted := refs.New(nil, "", "")
	if got := defaulted.DocumentURL(8); got != "/pep-0008/" {
		t.Errorf("default DocumentURL = %q", got)
	}
	if !strings.Contains(defaulted.RFCURL(822), "datatracker.ietf.org") {
		t.Errorf("default RFCURL = %q", defaulted.RFCURL(822))
	}
}

// -----------------------------------------------------------------------------
// TestURLOverride - per-target canonical URL wins over the template

func TestURLOverride(t *testing.T) {
	t.Parallel()

	r := refs.New(map[int]refs.Target{
		8: {Number: 8, Title: "Style Guide for Python Code", URL: "https://example.org/style/"},
		1: {Number: 1, Title: "PEP Purpose and Guidelines"},
	}, "", "")

	if got := r.DocumentURL(8); got != "https://example.org/style/" {
		t.Errorf("DocumentURL(8) = %q, want override", got)
	}
	if got := r.DocumentURL(1); got != "/pep-0001/" {
		t.Errorf("DocumentURL(1) = %q, want template form", got)
	}

	node, diag := r.Link(20, 8, "PEP 8")
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %+v", diag)
	}
	link, ok := node.(*gast.Link)
	if !ok {
		t.Fatalf("node = %T, want *gast.Link", node)
	}
	if string(link.Destination) != "https://example.org/style/" {
		t.Errorf("Destination = %q, want override", link.Destination)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	r := corpusResolver()
	if target, ok := r.Lookup(1); !ok || target.Title != "PEP Purpose and Guidelines" {
		t.Errorf("Lookup(1) = %+v, %v", target, ok)
	}
	if _, ok := r.Lookup(999); ok {
		t.Error("Lookup(999) found a target")
	}
}
