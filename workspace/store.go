// Package workspace holds every replicated aggregate of a session:
// the named documents with their version counters, the canvas element
// list, the slide deck and the positional annotations. The engine
// goroutine is the only writer. Convergence rests on the version gate
// for document content and on verbatim command relay for everything
// else; no merging happens anywhere.
package workspace

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"peerdesk/domain"
	pderrors "peerdesk/errors"
)

type Store struct {
	log          *slog.Logger
	docs         map[string]*domain.Document
	assets       map[string][]byte
	active       string
	canvas       []domain.CanvasElement
	slides       []domain.Slide
	currentSlide int
	dots         []domain.Annotation
	index        *Index
}

func NewStore(log *slog.Logger) *Store {
	return &Store{
		log:    log,
		docs:   make(map[string]*domain.Document),
		assets: make(map[string][]byte),
		slides: []domain.Slide{{ID: "slide-" + uuid.NewString()[:8], Background: domain.DefaultSlideBackground}},
	}
}

// WithIndex attaches a full-text index kept in step with every
// document mutation.
func (s *Store) WithIndex(index *Index) *Store {
	s.index = index
	return s
}

// Add creates or overwrites a document from local input. The name is
// sanitized, not rejected: local file pickers produce odd names, and
// unlike wire input they deserve repair. An existing document keeps
// its version counter.
func (s *Store) Add(name, content string) (string, error) {
	safe := domain.SafeFilename(name)
	if safe == "" {
		return "", pderrors.ErrInvalidFilename
	}
	if len(content) > domain.MaxFileSize {
		return "", pderrors.ErrTooLarge
	}
	if _, exists := s.docs[safe]; !exists && len(s.docs) >= domain.MaxFiles {
		return "", pderrors.ErrTooManyFiles
	}
	version := int64(0)
	if doc, exists := s.docs[safe]; exists {
		version = doc.Version
	}
	s.docs[safe] = &domain.Document{
		Name:     safe,
		Content:  content,
		Language: domain.LanguageOf(safe),
		Version:  version,
	}
	s.reindex(safe, content)
	return safe, nil
}

// ApplySync applies a remote content update under the version gate:
// accept iff the update's version is >= the local counter, otherwise
// the update is stale and discarded. Unknown documents are not
// created here; content sync never changes the file set.
func (s *Store) ApplySync(name, content string, version int64) (bool, error) {
	doc, ok := s.docs[name]
	if !ok {
		return false, pderrors.ErrFileNotFound
	}
	if version < doc.Version {
		return false, nil
	}
	doc.Content = content
	doc.Version = version
	doc.Modified = false
	s.reindex(name, content)
	return true, nil
}

// Touch records a local keystroke burst before the debounce flush:
// content changes immediately, the version counter does not move yet.
func (s *Store) Touch(name, content string) bool {
	doc, ok := s.docs[name]
	if !ok {
		return false
	}
	doc.Content = content
	doc.Modified = true
	return true
}

// Flush ends a debounce window: the version counter increments by
// exactly one and the content at this moment becomes the broadcast
// payload.
func (s *Store) Flush(name string) (string, int64, bool) {
	doc, ok := s.docs[name]
	if !ok {
		return "", 0, false
	}
	doc.Version++
	doc.Modified = false
	s.reindex(name, doc.Content)
	return doc.Content, doc.Version, true
}

// Rename moves a document to a new name. Rejected when the source is
// missing or the destination exists; version travels with the content.
func (s *Store) Rename(oldName, newName string) error {
	doc, ok := s.docs[oldName]
	if !ok {
		return pderrors.ErrFileNotFound
	}
	if _, exists := s.docs[newName]; exists {
		return pderrors.ErrFileExists
	}
	delete(s.docs, oldName)
	doc.Name = newName
	doc.Language = domain.LanguageOf(newName)
	s.docs[newName] = doc
	if s.active == oldName {
		s.active = newName
	}
	s.unindex(oldName)
	s.reindex(newName, doc.Content)
	return nil
}

func (s *Store) Delete(name string) bool {
	if _, ok := s.docs[name]; !ok {
		return false
	}
	delete(s.docs, name)
	if s.active == name {
		s.active = ""
		if names := s.Filenames(); len(names) > 0 {
			s.active = names[0]
		}
	}
	s.unindex(name)
	return true
}

func (s *Store) Document(name string) (*domain.Document, bool) {
	doc, ok := s.docs[name]
	return doc, ok
}

func (s *Store) Filenames() []string {
	names := lo.Keys(s.docs)
	sort.Strings(names)
	return names
}

func (s *Store) Len() int { return len(s.docs) }

func (s *Store) ActiveFile() string { return s.active }

func (s *Store) SetActiveFile(name string) {
	if _, ok := s.docs[name]; ok || name == "" {
		s.active = name
	}
}

// PutAsset stores a reassembled binary artifact that is not a text
// document (images and other opaque payloads).
func (s *Store) PutAsset(name string, data []byte) {
	s.assets[name] = data
}

func (s *Store) Asset(name string) ([]byte, bool) {
	data, ok := s.assets[name]
	return data, ok
}

func (s *Store) Canvas() []domain.CanvasElement { return s.canvas }

func (s *Store) AppendCanvas(el domain.CanvasElement) {
	s.canvas = append(s.canvas, el)
}

// SetCanvas replaces the whole element list; canvas replication is
// snapshot-based by design.
func (s *Store) SetCanvas(elements []domain.CanvasElement) {
	s.canvas = elements
}

func (s *Store) Slides() ([]domain.Slide, int) { return s.slides, s.currentSlide }

func (s *Store) SetSlides(slides []domain.Slide, current int) {
	if len(slides) == 0 {
		return
	}
	if current < 0 || current >= len(slides) {
		current = len(slides) - 1
	}
	s.slides = slides
	s.currentSlide = current
}

func (s *Store) Dots() []domain.Annotation { return s.dots }

func (s *Store) SetDots(dots []domain.Annotation) {
	s.dots = dots
}

// Snapshot captures the complete replicated state for a joining guest.
func (s *Store) Snapshot() domain.WorkspaceData {
	files := make(map[string]domain.FileState, len(s.docs))
	for name, doc := range s.docs {
		files[name] = domain.FileState{
			Content:  doc.Content,
			Language: doc.Language,
			Version:  doc.Version,
		}
	}
	return domain.WorkspaceData{
		Files:          files,
		ActiveFile:     s.active,
		CanvasElements: s.canvas,
		Slides:         s.slides,
		CurrentSlide:   s.currentSlide,
		Dots:           s.dots,
	}
}

// Adopt discards the entire local replica and installs the snapshot
// verbatim. Filenames are sanitized and oversized entries skipped;
// beyond that the guest takes the host's word for everything.
func (s *Store) Adopt(data domain.WorkspaceData) {
	for name := range s.docs {
		s.unindex(name)
	}
	s.docs = make(map[string]*domain.Document, len(data.Files))
	for name, f := range data.Files {
		safe := domain.SafeFilename(name)
		if safe == "" || len(f.Content) > domain.MaxFileSize {
			continue
		}
		lang := f.Language
		if lang == "" {
			lang = domain.LanguageOf(safe)
		}
		s.docs[safe] = &domain.Document{
			Name:     safe,
			Content:  f.Content,
			Language: lang,
			Version:  f.Version,
		}
		s.reindex(safe, f.Content)
	}
	s.canvas = data.CanvasElements
	if len(data.Slides) > 0 {
		s.SetSlides(data.Slides, data.CurrentSlide)
	}
	s.dots = data.Dots

	active := domain.SafeFilename(data.ActiveFile)
	if _, ok := s.docs[active]; ok {
		s.active = active
	} else if names := s.Filenames(); len(names) > 0 {
		s.active = names[0]
	} else {
		s.active = ""
	}
}

func (s *Store) reindex(name, content string) {
	if s.index == nil {
		return
	}
	if err := s.index.Put(name, content); err != nil {
		s.log.Warn("Search index update failed", "file", name, "error", err)
	}
}

func (s *Store) unindex(name string) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(name); err != nil {
		s.log.Warn("Search index removal failed", "file", name, "error", err)
	}
}

// Search runs a query against the index, then re-scans the matching
// documents for line hits so callers can jump to a location.
func (s *Store) Search(query string) ([]Match, error) {
	if s.index == nil {
		return nil, nil
	}
	names, err := s.index.Query(query)
	if err != nil {
		return nil, err
	}
	var matches []Match
	for _, name := range names {
		doc, ok := s.docs[name]
		if !ok {
			continue
		}
		matches = append(matches, scanLines(name, doc.Content, query)...)
	}
	return matches, nil
}
