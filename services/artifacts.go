package services

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"atomrouter/models"

	"github.com/google/uuid"
)

const maxSlugLength = 50

// Function words dropped from slugs in addition to the classification vocabulary
var slugStopWords = []string{
	"un", "una", "unos", "unas", "de", "del", "el", "la", "los", "las", "al",
	"sobre", "en", "con", "por", "para", "y", "me", "mi",
	"a", "an", "the", "of", "about", "on", "for", "with", "and",
}

var slugDisallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

var contentTypes = map[string]string{
	".pdf": "application/pdf",
	".png": "image/png",
}

// ContentTypeFor infers the Content-Type of an artifact from its extension
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Slug derives a filesystem-safe fragment from the user message, dropping the
// vocabulary that triggered the given intent and common function words
func Slug(message string, intent models.Intent) string {
	drop := make(map[string]bool)
	for _, w := range slugVocabulary(intent) {
		drop[w] = true
	}
	for _, w := range slugStopWords {
		drop[w] = true
	}

	cleaned := slugDisallowed.ReplaceAllString(normalizeMessage(message), "")

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		if !drop[word] {
			kept = append(kept, word)
		}
	}

	slug := strings.Join(kept, "_")
	if utf8.RuneCountInString(slug) > maxSlugLength {
		slug = string([]rune(slug)[:maxSlugLength])
	}
	return strings.TrimRight(slug, "_")
}

func slugVocabulary(intent models.Intent) []string {
	switch intent.Kind {
	case models.IntentChart:
		words := append(append([]string{}, createWords...), chartWords...)
		for _, rule := range variantRules {
			if rule.variant == intent.Variant {
				words = append(words, rule.words...)
			}
		}
		return words
	case models.IntentDocument:
		return append(append([]string{}, documentVerbs...), documentWords...)
	default:
		return nil
	}
}

// ArtifactFilename composes the storage name of an artifact. Two requests with
// the same slug in the same second produce the same name.
func ArtifactFilename(intent models.Intent, message string, at time.Time) string {
	slug := Slug(message, intent)
	switch intent.Kind {
	case models.IntentChart:
		return fmt.Sprintf("chart_%s_%s_%d.png", intent.Variant, slug, at.Unix())
	default:
		return fmt.Sprintf("document_%s_%d.pdf", slug, at.Unix())
	}
}

// ArtifactStore is the flat directory generated files are written to and served from
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the storage directory if it does not exist
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("files directory not set")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the storage directory
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Save writes data under name. The bytes land in a temporary file first and are
// renamed into place, so readers never observe a partial artifact.
func (s *ArtifactStore) Save(name string, data []byte) error {
	if !validArtifactName(name) {
		return &RenderError{Kind: "artifact", Err: fmt.Errorf("invalid artifact name %q", name)}
	}

	tmp := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &RenderError{Kind: "artifact", Err: fmt.Errorf("failed to write %s: %w", name, err)}
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return &RenderError{Kind: "artifact", Err: fmt.Errorf("failed to store %s: %w", name, err)}
	}

	slog.Info("artifact stored", "filename", name, "bytes", len(data))
	return nil
}

// Open returns the named artifact for reading. Names that are not plain file
// names, and files that do not exist, yield ErrFileNotFound.
func (s *ArtifactStore) Open(name string) (*os.File, fs.FileInfo, error) {
	if !validArtifactName(name) {
		return nil, nil, ErrFileNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrFileNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrFileNotFound
	}
	return f, info, nil
}

// FileURL returns the public download URL of an artifact
func FileURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/files/" + url.PathEscape(name)
}

func validArtifactName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}
