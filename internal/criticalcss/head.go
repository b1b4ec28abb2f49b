package criticalcss

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

// StyleID is the id of the injected critical CSS <style> element.
const StyleID = "critical-css"

// loadFirstScripts must run before anything else renders.
var loadFirstScripts = map[string]bool{
	"detect-initial-state":       true,
	"instant-scroll-restoration": true,
}

// ReorderHead sorts the element children of head: load-first scripts, meta
// and title, favicon links, critical CSS, other links, everything else.
// Whitespace-only text between elements is dropped. The result must be a
// permutation of the original elements; otherwise a HeadReorderViolation is
// returned and head is left as reordered.
func ReorderHead(head *html.Node) error {
	return reorderHead(head, headOrder)
}

func reorderHead(head *html.Node, order func([]*html.Node) []*html.Node) error {
	var children []*html.Node
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		children = append(children, c)
	}
	before := elements(children)

	for c := head.FirstChild; c != nil; {
		next := c.NextSibling
		head.RemoveChild(c)
		c = next
	}
	arranged := order(children)
	for _, c := range arranged {
		head.AppendChild(c)
	}
	return verifyPermutation(before, elements(arranged))
}

func headOrder(children []*html.Node) []*html.Node {
	var top, metaTitle, favicons, critical, links, rest []*html.Node
	for _, c := range children {
		switch {
		case isLoadFirstScript(c):
			top = append(top, c)
		case isElement(c, atom.Meta), isElement(c, atom.Title):
			metaTitle = append(metaTitle, c)
		case isElement(c, atom.Style) && attr(c, "id") == StyleID:
			critical = append(critical, c)
		case isElement(c, atom.Link) && isFavicon(c):
			favicons = append(favicons, c)
		case isElement(c, atom.Link):
			links = append(links, c)
		default:
			rest = append(rest, c)
		}
	}
	out := make([]*html.Node, 0, len(children))
	for _, group := range [][]*html.Node{top, metaTitle, favicons, critical, links, rest} {
		out = append(out, group...)
	}
	return out
}

// verifyPermutation fails when after gained, lost or duplicated any element of before.
func verifyPermutation(before, after []*html.Node) error {
	seen := make(map[*html.Node]int, len(before))
	for _, n := range before {
		seen[n]++
	}
	for _, n := range after {
		if seen[n] == 0 {
			return ferrors.HeadReorderViolation(fmt.Sprintf("new element <%s> was added to the head", n.Data))
		}
		seen[n]--
	}
	var lost []string
	for _, n := range before {
		if seen[n] > 0 {
			lost = append(lost, n.Data)
			seen[n]--
		}
	}
	if len(lost) > 0 {
		return ferrors.HeadReorderViolation(fmt.Sprintf(
			"head reordering changed number of elements: %d -> %d; lost %s",
			len(before), len(after), strings.Join(lost, ", ")))
	}
	return nil
}

func elements(nodes []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

func isLoadFirstScript(n *html.Node) bool {
	return isElement(n, atom.Script) && loadFirstScripts[attr(n, "id")]
}

func isFavicon(n *html.Node) bool {
	rel := attr(n, "rel")
	return rel == "icon" || rel == "apple-touch-icon"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if isElement(n, a) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func removeCriticalStyles(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if isElement(c, atom.Style) && attr(c, "id") == StyleID {
			n.RemoveChild(c)
		} else {
			removeCriticalStyles(c)
		}
		c = next
	}
}
