package workspace

import (
	"context"
	"strings"

	"github.com/blugelabs/bluge"

	"peerdesk/domain"
)

const (
	maxSearchHits     = 20
	maxMatchesPerFile = 5
	maxMatchExcerpt   = 80
)

// Match is one located search hit inside a document.
type Match struct {
	File string
	Line int
	Text string
}

// Index is a full-text index over document contents, kept entirely in
// memory; it is rebuilt from the replica on every process start, so
// there is nothing to persist.
type Index struct {
	writer *bluge.Writer
}

func NewIndex() (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer}, nil
}

func (i *Index) Put(name, content string) error {
	doc := bluge.NewDocument(name).
		AddField(bluge.NewTextField("content", content))
	return i.writer.Update(doc.ID(), doc)
}

func (i *Index) Remove(name string) error {
	return i.writer.Delete(bluge.Identifier(name))
}

// Query returns the names of documents matching the query terms.
func (i *Index) Query(query string) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	match := bluge.NewMatchQuery(query).SetField("content")
	request := bluge.NewTopNSearch(maxSearchHits, match)
	iter, err := reader.Search(context.Background(), request)
	if err != nil {
		return nil, err
	}

	var names []string
	for {
		hit, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if hit == nil {
			break
		}
		err = hit.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				names = append(names, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// scanLines finds the line hits inside one document, bounded the same
// way the result panel is.
func scanLines(name, content, query string) []Match {
	q := strings.ToLower(query)
	var matches []Match
	for n, line := range strings.Split(content, "\n") {
		if !strings.Contains(strings.ToLower(line), q) {
			continue
		}
		matches = append(matches, Match{
			File: name,
			Line: n + 1,
			Text: domain.Truncate(strings.TrimSpace(line), maxMatchExcerpt),
		})
		if len(matches) >= maxMatchesPerFile {
			break
		}
	}
	return matches
}
