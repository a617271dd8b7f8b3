package domain

import (
	"regexp"
	"strings"
)

// Limits enforced at the admission gate and during local operations.
const (
	MaxFileSize    = 5 * 1024 * 1024
	MaxFiles       = 20
	MaxChatLen     = 500
	MaxNameLen     = 20
	MaxFilenameLen = 80
	RateLimitPerSec = 120
)

// FilenameReserved is the character class a filename may never contain.
const FilenameReserved = `/\<>:"|?*`

// Document is one named replicated file. Version is monotonic and
// never decreases once a replica has accepted it.
type Document struct {
	Name     string
	Content  string
	Language string
	Version  int64
	Modified bool
}

var langByExt = map[string]string{
	"js": "javascript", "jsx": "javascript", "ts": "typescript", "tsx": "typescript",
	"html": "html", "htm": "html", "css": "css", "scss": "css", "less": "css",
	"json": "json", "yaml": "yaml", "yml": "yaml", "md": "markdown",
	"py": "python", "rb": "ruby", "go": "go", "rs": "rust", "java": "java",
	"c": "c", "cpp": "cpp", "cs": "csharp", "php": "php",
	"sh": "bash", "bash": "bash", "sql": "sql", "xml": "xml",
	"vue": "html", "svelte": "html", "toml": "ini", "ini": "ini",
	"env": "plaintext", "txt": "plaintext", "log": "plaintext",
}

// LanguageOf maps a filename extension to an editor language tag.
func LanguageOf(filename string) string {
	parts := strings.Split(filename, ".")
	ext := strings.ToLower(parts[len(parts)-1])
	if lang, ok := langByExt[ext]; ok {
		return lang
	}
	return "plaintext"
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)

// SafeFilename rewrites any character outside [a-zA-Z0-9._-] to an
// underscore and truncates to the filename limit. An empty result
// means the name is unusable.
func SafeFilename(name string) string {
	safe := unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(safe) > MaxFilenameLen {
		safe = safe[:MaxFilenameLen]
	}
	return safe
}

// ValidFilename is the gate-level check: length-bounded and free of
// reserved path characters. Unlike SafeFilename it rejects instead of
// rewriting, because inbound frames are never repaired.
func ValidFilename(name string) bool {
	if name == "" || len(name) > MaxFilenameLen {
		return false
	}
	return !strings.ContainsAny(name, FilenameReserved)
}

// Truncate bounds a free-text field to max bytes.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
