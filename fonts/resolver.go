package fonts

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font/sfnt"
)

// maxFontFileSize bounds a single font file read during the host scan.
const maxFontFileSize = 64 << 20

// Config controls catalog resolution.
type Config struct {
	// System enables scanning the platform font directories.
	System bool
	// Dirs are extra directories scanned before the platform ones.
	Dirs []string
	// Preferred overrides the family assigned to a class.
	Preferred map[Class]string
}

// Resolver builds a Catalog once and hands out the cached value afterwards.
type Resolver struct {
	cfg    Config
	logger *slog.Logger

	once    sync.Once
	catalog *Catalog
}

// NewResolver creates a Resolver for the given configuration.
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve scans the configured directories on the first call and returns
// the catalog. It never fails: the bundled faces are always appended after
// whatever the host provides.
func (r *Resolver) Resolve() *Catalog {
	r.once.Do(func() {
		dirs := append([]string(nil), r.cfg.Dirs...)
		if r.cfg.System {
			dirs = append(dirs, SystemDirs()...)
		}

		faces := scanDirs(dirs, r.logger)
		hostFaces := len(faces)
		faces = append(faces, builtinFaces()...)

		r.catalog = NewCatalog(r.cfg.Preferred, faces)

		attrs := []any{
			slog.Int("host_faces", hostFaces),
			slog.Int("faces", len(faces)),
		}
		for _, class := range Classes {
			family := r.catalog.Family(class)
			if !r.catalog.Has(family) {
				family += " (fallback)"
			}

			attrs = append(attrs, slog.String(class.String(), family))
		}

		r.logger.Debug("font catalog resolved", attrs...)
	})

	return r.catalog
}

// SystemDirs returns the platform font directories.
func SystemDirs() []string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		dirs := []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs,
				filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}

		return dirs
	case "darwin":
		dirs := []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}

		return dirs
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}

		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" && home != "" {
			dataHome = filepath.Join(home, ".local", "share")
		}

		if dataHome != "" {
			dirs = append(dirs, filepath.Join(dataHome, "fonts"))
		}

		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".fonts"))
		}

		return dirs
	}
}

func scanDirs(dirs []string, logger *slog.Logger) []*Face {
	var faces []*Face

	seen := make(map[string]bool)

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}

			if d.IsDir() || !isFontFile(path) {
				return nil
			}

			loaded, err := loadFile(path)
			if err != nil {
				logger.Debug("skipping font file",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)

				return nil
			}

			for _, f := range loaded {
				key := strings.ToLower(f.Family + "/" + f.Subfamily)
				if seen[key] {
					continue
				}

				seen[key] = true
				faces = append(faces, f)
			}

			return nil
		})
		if err != nil {
			logger.Debug("font directory scan failed",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
		}
	}

	return faces
}

func isFontFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf", ".otf", ".ttc", ".otc":
		return true
	default:
		return false
	}
}

func loadFile(path string) ([]*Face, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.Size() > maxFontFileSize {
		return nil, fmt.Errorf("font file larger than %d bytes", maxFontFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	coll, err := sfnt.ParseCollection(data)
	if err != nil {
		return nil, err
	}

	var buf sfnt.Buffer

	faces := make([]*Face, 0, coll.NumFonts())

	for i := 0; i < coll.NumFonts(); i++ {
		f, err := coll.Font(i)
		if err != nil {
			return nil, err
		}

		family, err := f.Name(&buf, sfnt.NameIDFamily)
		if err != nil || family == "" {
			continue
		}

		subfamily, _ := f.Name(&buf, sfnt.NameIDSubfamily)

		faces = append(faces, &Face{
			Family:    family,
			Subfamily: subfamily,
			Class:     classify(family),
			Source:    path,
			Font:      f,
		})
	}

	return faces, nil
}
