package media

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"triage/internal/config"
)

// Type is the review category assigned to a file at insertion time.
type Type string

const (
	Image    Type = "image"
	Document Type = "document"
	Video    Type = "video"
	Audio    Type = "audio"
)

// Types lists the categories in display order.
var Types = []Type{Image, Document, Video, Audio}

// Classifier maps extensions to media types. It is safe for concurrent use.
type Classifier struct {
	table map[string]Type
}

// NewClassifier builds a classifier from the configured extension lists. When
// an extension appears in more than one list the earlier category wins.
func NewClassifier(types config.FileTypes) *Classifier {
	c := &Classifier{table: make(map[string]Type)}
	c.register(Image, types.Images)
	c.register(Document, types.Documents)
	c.register(Video, types.Videos)
	c.register(Audio, types.Audio)
	return c
}

// DefaultClassifier returns a classifier over the built-in extension table.
func DefaultClassifier() *Classifier {
	return NewClassifier(config.Default().FileTypes)
}

func (c *Classifier) register(kind Type, extensions []string) {
	for _, ext := range extensions {
		key := normalize(ext)
		if key == "" {
			continue
		}
		if _, taken := c.table[key]; taken {
			continue
		}
		c.table[key] = kind
	}
}

// Classify returns the media type for ext. Only the substring after the last
// dot is considered, so ".tar.gz" is looked up as ".gz". Matching is
// case-insensitive. Unknown or empty extensions report false.
func (c *Classifier) Classify(ext string) (Type, bool) {
	if c == nil {
		return "", false
	}
	key := normalize(ext)
	if key == "" {
		return "", false
	}
	kind, ok := c.table[key]
	return kind, ok
}

// ClassifyName classifies a file by its base name.
func (c *Classifier) ClassifyName(name string) (Type, bool) {
	ext := Extension(name)
	if ext == "" {
		return "", false
	}
	return c.Classify(ext)
}

// Extensions returns every enabled extension in sorted order.
func (c *Classifier) Extensions() []string {
	out := make([]string, 0, len(c.table))
	for ext := range c.table {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extension returns the dotted extension of a base name, or "" when the name
// has none. A leading dot marks a hidden file, not an extension.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx:]
}

func normalize(ext string) string {
	ext = strings.TrimSpace(ext)
	if idx := strings.LastIndexByte(ext, '.'); idx >= 0 {
		ext = ext[idx+1:]
	}
	if ext == "" {
		return ""
	}
	// Casers carry state, so one is built per call.
	return "." + cases.Fold().String(ext)
}
