package document

import (
	"fmt"
	"net/url"
	"strings"
)

// refResolver follows local "#/..." references inside one document
type refResolver struct {
	root *Node
}

// resolve follows n while it is a local reference object. External and
// dangling references are returned unresolved.
func (r *refResolver) resolve(n *Node) (*Node, error) {
	seen := make(map[string]bool)
	for n.IsObject() {
		ref := n.Get("$ref").Str()
		if !strings.HasPrefix(ref, "#/") {
			return n, nil
		}
		if seen[ref] {
			return nil, &SyntaxError{Line: n.Line, Msg: fmt.Sprintf("reference cycle through %q", ref)}
		}
		seen[ref] = true

		target := r.lookup(ref)
		if target == nil {
			return n, nil
		}
		n = target
	}
	return n, nil
}

// lookup walks a JSON pointer fragment from the root
func (r *refResolver) lookup(ref string) *Node {
	n := r.root
	for _, token := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		if unescaped, err := url.PathUnescape(token); err == nil {
			token = unescaped
		}
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		if n = n.Get(token); n == nil {
			return nil
		}
	}
	return n
}
