package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxChunkIDLength bounds chunk identifiers.
const MaxChunkIDLength = 200

var chunkIDPattern = regexp.MustCompile(`^[\w.&-]+$`)

// ticketPrefixes mark an ID segment as a ticket reference.
var ticketPrefixes = []string{"TIC-", "ISSUE-", "#", "JJ-", "GH-"}

// ValidateChunkID rejects identifiers that are empty, too long, or contain
// characters outside [A-Za-z0-9_.&-].
func ValidateChunkID(id string) error {
	if id == "" || len(id) > MaxChunkIDLength || !chunkIDPattern.MatchString(id) {
		return ErrInvalidChunkID
	}
	return nil
}

// ChunkIDFormat identifies the layout of a parsed chunk ID.
type ChunkIDFormat string

// Known chunk ID layouts.
const (
	// ChunkIDFormatLegacy is {date}_{seq}.
	ChunkIDFormatLegacy ChunkIDFormat = "1.0"

	// ChunkIDFormatSession is {date}_{project}_{seq}[_{ticket}][_{domain}].
	ChunkIDFormatSession ChunkIDFormat = "2.0"

	// ChunkIDFormatUnknown is anything else.
	ChunkIDFormatUnknown ChunkIDFormat = "unknown"
)

// ChunkIDParts are the components of a chunk ID.
type ChunkIDParts struct {
	Raw      string
	Format   ChunkIDFormat
	Date     string
	Project  string
	Sequence string
	Ticket   string
	Domain   string
}

// ParseChunkID splits an ID into its components.
func ParseChunkID(id string) ChunkIDParts {
	parts := strings.Split(id, "_")
	switch {
	case len(parts) == 2:
		return ChunkIDParts{
			Raw:      id,
			Format:   ChunkIDFormatLegacy,
			Date:     parts[0],
			Sequence: parts[1],
		}
	case len(parts) >= 3:
		p := ChunkIDParts{
			Raw:      id,
			Format:   ChunkIDFormatSession,
			Date:     parts[0],
			Project:  parts[1],
			Sequence: parts[2],
		}
		for _, part := range parts[3:] {
			if isTicket(part) {
				p.Ticket = part
			} else {
				p.Domain = part
			}
		}
		return p
	default:
		return ChunkIDParts{Raw: id, Format: ChunkIDFormatUnknown}
	}
}

func isTicket(part string) bool {
	upper := strings.ToUpper(part)
	for _, prefix := range ticketPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// NewChunkID builds a format 2.0 identifier. ticket and domain are optional.
// The result still has to pass ValidateChunkID.
func NewChunkID(date, project string, seq int, ticket, domain string) string {
	parts := []string{date, project, fmt.Sprintf("%03d", seq)}
	if ticket != "" {
		parts = append(parts, ticket)
	}
	if domain != "" {
		parts = append(parts, domain)
	}
	return strings.Join(parts, "_")
}
