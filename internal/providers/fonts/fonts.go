package fonts

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

var extensions = []string{"ttf", "otf", "ttc", "woff", "woff2"}

// styleSuffixes name weights, slants and widths that trail a family name
var styleSuffixes = []string{
	"Bold Italic", "Bold Oblique", "Semi Bold Italic", "SemiBold Italic",
	"Extra Bold Italic", "ExtraBold Italic", "Ultra Bold Italic",
	"Light Italic", "Light Oblique", "Thin Italic", "Thin Oblique",
	"Medium Italic", "Medium Oblique", "Black Italic", "Black Oblique",
	"Heavy Italic", "Heavy Oblique",
	"Bold", "Italic", "Oblique", "Regular", "Medium", "Light",
	"Thin", "Black", "Heavy", "ExtraBold", "Extra Bold",
	"SemiBold", "Semi Bold", "DemiBold", "Demi Bold",
	"ExtraLight", "Extra Light", "UltraLight", "Ultra Light",
	"Book", "Condensed", "Narrow", "Wide", "Extended",
}

// longestFirst orders styleSuffixes so "SemiBold" is tried before "Bold"
var longestFirst = func() []string {
	sorted := append([]string(nil), styleSuffixes...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return sorted
}()

// fontPattern matches font files at any depth, ignoring extension case
var fontPattern = func() string {
	alts := make([]string, len(extensions))
	for i, ext := range extensions {
		alts[i] = foldCase(ext)
	}
	return "**/*.{" + strings.Join(alts, ",") + "}"
}()

// foldCase turns "ttf" into "[tT][tT][fF]"
func foldCase(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower, upper := strings.ToLower(string(r)), strings.ToUpper(string(r))
		if lower == upper {
			b.WriteString(lower)
			continue
		}
		b.WriteString("[" + lower + upper + "]")
	}
	return b.String()
}

// SystemDirs returns the font folders for goos, user folders included
func SystemDirs(goos string, getenv func(string) string) []string {
	switch goos {
	case "windows":
		var dirs []string
		if windir := getenv("WINDIR"); windir != "" {
			dirs = append(dirs, filepath.Join(windir, "Fonts"))
		}
		if local := getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	case "darwin":
		dirs := []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home := getenv("HOME"); home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
		return dirs
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home := getenv("HOME"); home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"))
		}
		return dirs
	}
}

// Scanner collects font family names from font folders
type Scanner struct {
	dirs   []string
	logger *zap.Logger
}

// NewScanner creates a scanner over dirs
func NewScanner(dirs []string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{dirs: dirs, logger: logger}
}

// Families returns sorted, de-duplicated family names. Missing or
// unreadable folders are skipped.
func (s *Scanner) Families(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, dir := range s.dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(os.DirFS(dir), fontPattern, doublestar.WithFilesOnly())
		if err != nil {
			s.logger.Debug("Font folder skipped", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, match := range matches {
			if family := FamilyName(path.Base(match)); family != "" {
				seen[family] = struct{}{}
			}
		}
	}

	families := make([]string, 0, len(seen))
	for family := range seen {
		families = append(families, family)
	}
	sort.Strings(families)
	return families, nil
}

// FamilyName derives a family name from a font file name, so
// "Roboto_Bold_Italic.ttf" and "Roboto-BoldItalic.otf" both become "Roboto".
func FamilyName(file string) string {
	stem := strings.TrimSuffix(file, path.Ext(file))
	name := strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
	return stripStyle(name)
}

// stripStyle removes trailing styles until none is left
func stripStyle(name string) string {
	for {
		stripped := false
		for _, suffix := range longestFirst {
			if trimmed, ok := strings.CutSuffix(name, suffix); ok {
				name = strings.TrimSpace(trimmed)
				stripped = true
				break
			}
		}
		if !stripped || name == "" {
			return name
		}
	}
}
