package fonts

import (
	"fmt"

	"golang.org/x/image/font/sfnt"
	"gonum.org/v1/plot/font/liberation"
)

// BuiltinSource is the Source of faces from the bundled set.
const BuiltinSource = "builtin"

// builtinFaces returns the bundled Liberation Serif, Sans and Mono faces.
func builtinFaces() []*Face {
	coll := liberation.Collection()
	faces := make([]*Face, 0, len(coll))

	var buf sfnt.Buffer

	for _, cf := range coll {
		if cf.Face == nil {
			continue
		}

		family, err := cf.Face.Name(&buf, sfnt.NameIDFamily)
		if err != nil || family == "" {
			family = fmt.Sprintf("%s %s", cf.Font.Typeface, cf.Font.Variant)
		}

		subfamily, err := cf.Face.Name(&buf, sfnt.NameIDSubfamily)
		if err != nil {
			subfamily = ""
		}

		faces = append(faces, &Face{
			Family:    family,
			Subfamily: subfamily,
			Class:     classify(family),
			Source:    BuiltinSource,
			Font:      cf.Face,
		})
	}

	return faces
}

// Builtin returns a catalog made only of the bundled faces. It does not
// touch the filesystem.
func Builtin(preferred map[Class]string) *Catalog {
	return NewCatalog(preferred, builtinFaces())
}
