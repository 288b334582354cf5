package services

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

const frontMatterDelim = "---"

// frontMatter is the YAML header written at the top of every chunk file.
// It duplicates the metadata record so a chunk file is readable on its own.
type frontMatter struct {
	ID             string          `yaml:"id"`
	Summary        string          `yaml:"summary"`
	Tags           domain.TagSet   `yaml:"tags"`
	ChunkType      string          `yaml:"chunk_type"`
	Entities       domain.Entities `yaml:"entities,omitempty"`
	Project        string          `yaml:"project"`
	Ticket         string          `yaml:"ticket"`
	Domain         string          `yaml:"domain"`
	CreatedAt      time.Time       `yaml:"created_at"`
	TokensEstimate int             `yaml:"tokens_estimate"`
	ContentHash    string          `yaml:"content_hash"`
	FormatVersion  string          `yaml:"format_version"`
}

// encodeChunkFile renders the header, a blank line, then the body.
func encodeChunkFile(c *domain.Chunk, body string) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{
		ID:             c.ID,
		Summary:        c.Summary,
		Tags:           c.Tags,
		ChunkType:      c.Type.String(),
		Entities:       c.Entities,
		Project:        c.Project,
		Ticket:         c.Ticket,
		Domain:         c.Domain,
		CreatedAt:      c.CreatedAt,
		TokensEstimate: c.TokensEstimate,
		ContentHash:    c.Fingerprint,
		FormatVersion:  c.FormatVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(header) + len(body) + 16)
	buf.WriteString(frontMatterDelim + "\n")
	buf.Write(header)
	buf.WriteString(frontMatterDelim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// splitChunkFile separates the YAML header from the body. Files without a
// header, or with an unterminated one, are all body. The blank separator
// line after the header is not part of the body.
func splitChunkFile(data []byte) (header []byte, body []byte) {
	first, rest, _ := cutLine(data)
	if !isDelim(first) {
		return nil, data
	}

	offset := len(data) - len(rest)
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if isDelim(line) {
			header = data[offset : len(data)-len(rest)]
			body = next
			if sep, after, found := cutLine(body); found && len(bytes.TrimSpace(sep)) == 0 {
				body = after
			}
			return header, body
		}
		rest = next
	}
	return nil, data
}

// stripFrontMatter returns the body of a chunk file as a string.
func stripFrontMatter(data []byte) string {
	_, body := splitChunkFile(data)
	return string(body)
}

// decodeFrontMatter parses the header of a chunk file. It returns nil for
// files without one.
func decodeFrontMatter(data []byte) (*frontMatter, error) {
	header, _ := splitChunkFile(data)
	if header == nil {
		return nil, nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("decode front matter: %w", err)
	}
	return &fm, nil
}

// cutLine splits off the first line, without its terminator.
func cutLine(data []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(data, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

func isDelim(line []byte) bool {
	return string(bytes.TrimSpace(line)) == frontMatterDelim
}
