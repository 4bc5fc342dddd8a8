package anystore

import (
	"slices"
	"strings"
)

// Address names a location inside a store's hierarchy. It is an immutable,
// ordered sequence of non-empty segments.
//
// Address is a comparable value type: two addresses with the same segments
// are == and may be used as map keys. The zero value is the root address.
// Backends decide how an Address maps to their native key scheme.
type Address struct {
	// enc holds the segments escaped ('\' and '/' prefixed by '\') and
	// joined with '/'. The root address is the empty string.
	enc string
}

// Root is the address of the top of a store.
var Root = Address{}

// NewAddress builds an Address from the given segments. Empty segments are
// dropped, so construction never fails.
func NewAddress(segments ...string) Address {
	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		writeEscaped(&b, s)
	}
	return Address{enc: b.String()}
}

// ParseAddress parses the form produced by [Address.String]: segments
// separated by '/', with '\' escaping a literal '/' or '\'. Leading,
// trailing and repeated separators are ignored.
func ParseAddress(s string) Address {
	return NewAddress(splitEscaped(s)...)
}

// Child returns a new address one level below a.
func (a Address) Child(segment string) Address {
	return a.Join(NewAddress(segment))
}

// Join appends all segments of other to a.
func (a Address) Join(other Address) Address {
	switch {
	case a.enc == "":
		return other
	case other.enc == "":
		return a
	}
	return Address{enc: a.enc + "/" + other.enc}
}

// Parent returns the address one level up. The boolean is false if a is
// already the root.
func (a Address) Parent() (Address, bool) {
	if a.enc == "" {
		return Root, false
	}
	i := lastSeparator(a.enc)
	if i < 0 {
		return Root, true
	}
	return Address{enc: a.enc[:i]}, true
}

// Segments returns a copy of the segments of a.
func (a Address) Segments() []string {
	if a.enc == "" {
		return nil
	}
	return splitEscaped(a.enc)
}

// Len returns the number of segments.
func (a Address) Len() int {
	if a.enc == "" {
		return 0
	}
	return len(splitEscaped(a.enc))
}

// Last returns the final segment, or "" for the root.
func (a Address) Last() string {
	if a.enc == "" {
		return ""
	}
	i := lastSeparator(a.enc)
	return unescape(a.enc[i+1:])
}

// IsRoot reports whether a has no segments.
func (a Address) IsRoot() bool {
	return a.enc == ""
}

// HasPrefix reports whether prefix is a or one of its ancestors.
func (a Address) HasPrefix(prefix Address) bool {
	if prefix.enc == "" || a.enc == prefix.enc {
		return true
	}
	return strings.HasPrefix(a.enc, prefix.enc+"/")
}

// Rel returns a relative to base, i.e. the address r such that
// base.Join(r) == a. The boolean is false if base is not a prefix of a.
func (a Address) Rel(base Address) (Address, bool) {
	switch {
	case !a.HasPrefix(base):
		return Root, false
	case base.enc == "":
		return a, true
	case a.enc == base.enc:
		return Root, true
	}
	return Address{enc: a.enc[len(base.enc)+1:]}, true
}

// Compare orders addresses segment by segment.
func (a Address) Compare(b Address) int {
	return slices.Compare(a.Segments(), b.Segments())
}

// String returns the canonical form of a: a leading '/' followed by the
// escaped segments. The root is "/".
func (a Address) String() string {
	return "/" + a.enc
}

// KeyRange returns the half-open range [from, to) that contains the
// String form of every strict descendant of a, and nothing else. Ordered
// key-value backends use it to scan a sub-tree.
func (a Address) KeyRange() (from, to string) {
	from = a.String()
	if a.enc != "" {
		from += "/"
	}
	// from always ends in '/', and '0' is the byte after it.
	return from, from[:len(from)-1] + "0"
}

// ImmediateChildren reduces a flat listing of descendants of base to the
// distinct children exactly one level below base, in [Address.Compare]
// order. Addresses outside base and base itself are ignored.
func ImmediateChildren(base Address, descendants []Address) []Address {
	seen := make(map[Address]struct{})
	out := make([]Address, 0)
	for _, d := range descendants {
		rel, ok := d.Rel(base)
		if !ok || rel.IsRoot() {
			continue
		}
		child := base.Child(rel.Segments()[0])
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		out = append(out, child)
	}
	slices.SortFunc(out, Address.Compare)
	return out
}

func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
}

// splitEscaped splits on unescaped '/' and unescapes each part. Empty parts
// are kept; NewAddress drops them.
func splitEscaped(s string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case s[i] == '/':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(parts, cur.String())
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	return splitEscaped(s)[0]
}

// lastSeparator returns the index of the last unescaped '/' in enc, or -1.
func lastSeparator(enc string) int {
	last := -1
	for i := 0; i < len(enc); i++ {
		switch enc[i] {
		case '\\':
			i++
		case '/':
			last = i
		}
	}
	return last
}
