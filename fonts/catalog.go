// Package fonts builds the font catalog used to turn chart text into glyph
// outlines. The catalog maps the five generic CSS families to named
// families and falls back to a bundled set when the host has nothing usable,
// so renders look the same on every machine.
package fonts

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/image/font/sfnt"
)

// Class is a generic font family class.
type Class int

// Generic classes, in CSS order.
const (
	Serif Class = iota
	SansSerif
	Cursive
	Fantasy
	Monospace
)

// Classes lists every generic class.
var Classes = []Class{Serif, SansSerif, Cursive, Fantasy, Monospace}

func (c Class) String() string {
	switch c {
	case Serif:
		return "serif"
	case SansSerif:
		return "sans-serif"
	case Cursive:
		return "cursive"
	case Fantasy:
		return "fantasy"
	case Monospace:
		return "monospace"
	default:
		return "unknown"
	}
}

// ParseClass maps a generic family keyword to its Class.
func ParseClass(name string) (Class, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "serif":
		return Serif, true
	case "sans-serif":
		return SansSerif, true
	case "cursive":
		return Cursive, true
	case "fantasy":
		return Fantasy, true
	case "monospace":
		return Monospace, true
	default:
		return 0, false
	}
}

// DefaultPreferred returns the family assigned to each class unless
// configured otherwise.
func DefaultPreferred() map[Class]string {
	return map[Class]string{
		Serif:     "Times New Roman",
		SansSerif: "Arial",
		Cursive:   "Comic Sans MS",
		Fantasy:   "Impact",
		Monospace: "Courier New",
	}
}

// nearest is the class search order used when no family in a lookup
// matches a face in the catalog.
var nearest = map[Class][]Class{
	Serif:     {Serif, SansSerif},
	SansSerif: {SansSerif, Serif},
	Cursive:   {Cursive, SansSerif, Serif},
	Fantasy:   {Fantasy, SansSerif, Serif},
	Monospace: {Monospace, SansSerif},
}

// Face is a single parsed font face.
type Face struct {
	Family    string
	Subfamily string
	Class     Class
	// Source is the file the face was loaded from, or "builtin".
	Source string
	Font   *sfnt.Font
}

// Regular reports whether the face is the upright, normal weight member of
// its family.
func (f *Face) Regular() bool {
	switch strings.ToLower(f.Subfamily) {
	case "", "regular", "normal", "book", "roman":
		return true
	default:
		return false
	}
}

// GlyphIndex returns the glyph for r and whether the face has one.
func (f *Face) GlyphIndex(buf *sfnt.Buffer, r rune) (sfnt.GlyphIndex, bool) {
	gi, err := f.Font.GlyphIndex(buf, r)
	if err != nil || gi == 0 {
		return 0, false
	}

	return gi, true
}

// Catalog is the resolved set of faces plus the class assignments. It is
// read-only once built.
type Catalog struct {
	families map[Class]string
	faces    []*Face
	byFamily map[string][]*Face
}

// NewCatalog builds a catalog from faces in discovery order. Classes missing
// from preferred get their DefaultPreferred family. faces must not be empty.
func NewCatalog(preferred map[Class]string, faces []*Face) *Catalog {
	defaults := DefaultPreferred()
	families := make(map[Class]string, len(Classes))

	for _, class := range Classes {
		name := strings.TrimSpace(preferred[class])
		if name == "" {
			name = defaults[class]
		}

		families[class] = name
	}

	byFamily := make(map[string][]*Face)
	for _, f := range faces {
		key := strings.ToLower(f.Family)
		byFamily[key] = append(byFamily[key], f)
	}

	return &Catalog{
		families: families,
		faces:    faces,
		byFamily: byFamily,
	}
}

// Family returns the family name assigned to class.
func (c *Catalog) Family(class Class) string {
	return c.families[class]
}

// Faces returns every face in discovery order. The slice must not be
// modified.
func (c *Catalog) Faces() []*Face {
	return c.faces
}

// Has reports whether a face of the named family is present.
func (c *Catalog) Has(family string) bool {
	return len(c.byFamily[strings.ToLower(strings.TrimSpace(family))]) > 0
}

// Lookup resolves a CSS font-family list such as `"Fira Code", monospace`
// to a face. It never returns nil for a catalog with at least one face.
func (c *Catalog) Lookup(fontFamily string) *Face {
	names := splitFamilies(fontFamily)
	want, generic := SansSerif, false

	for _, name := range names {
		if class, ok := ParseClass(name); ok {
			want, generic = class, true

			break
		}
	}

	if !generic && len(names) > 0 {
		want = classify(names[0])
	}

	for _, name := range names {
		if class, ok := ParseClass(name); ok {
			name = c.families[class]
		}

		if f := c.family(name); f != nil {
			return f
		}
	}

	for _, class := range nearest[want] {
		if f := c.firstOfClass(class); f != nil {
			return f
		}
	}

	if len(c.faces) == 0 {
		return nil
	}

	return c.faces[0]
}

// ForRune returns primary when it has a glyph for r, otherwise the first
// face in the catalog that does. The second result is false when no face
// covers r, in which case primary is returned.
func (c *Catalog) ForRune(buf *sfnt.Buffer, primary *Face, r rune) (*Face, sfnt.GlyphIndex, bool) {
	if gi, ok := primary.GlyphIndex(buf, r); ok {
		return primary, gi, true
	}

	for _, f := range c.faces {
		if f == primary {
			continue
		}

		if gi, ok := f.GlyphIndex(buf, r); ok {
			return f, gi, true
		}
	}

	return primary, 0, false
}

func (c *Catalog) family(name string) *Face {
	faces := c.byFamily[strings.ToLower(name)]
	for _, f := range faces {
		if f.Regular() {
			return f
		}
	}

	if len(faces) > 0 {
		return faces[0]
	}

	return nil
}

func (c *Catalog) firstOfClass(class Class) *Face {
	var first *Face

	for _, f := range c.faces {
		if f.Class != class {
			continue
		}

		if f.Regular() {
			return f
		}

		if first == nil {
			first = f
		}
	}

	return first
}

func splitFamilies(list string) []string {
	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			names = append(names, p)
		}
	}

	return names
}

// classify guesses the generic class of a family from its name.
func classify(family string) Class {
	name := strings.ToLower(family)

	switch {
	case containsAny(name, "mono", "courier", "consol", "code", "terminal"):
		return Monospace
	case containsAny(name, "comic", "script", "brush", "chancery", "hand"):
		return Cursive
	case containsAny(name, "impact", "papyrus", "fantasy", "jokerman"):
		return Fantasy
	case containsAny(name, "sans", "arial", "helvetica", "verdana", "tahoma",
		"segoe", "ubuntu", "roboto") || hasWord(name, "inter"):
		return SansSerif
	case containsAny(name, "serif", "times", "georgia", "roman", "garamond",
		"palatino", "cambria"):
		return Serif
	default:
		return SansSerif
	}
}

// hasWord reports whether word appears in s delimited by non-alphanumerics.
func hasWord(s, word string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	return slices.Contains(fields, word)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
