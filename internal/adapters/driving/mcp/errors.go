// Package mcp exposes chunk storage, search, insights and retention as
// Model Context Protocol tools.
package mcp

import (
	"github.com/custodia-labs/rlm/internal/core/domain"
)

// failure turns a caller mistake (unknown ID, bad input, conflict) into a
// status tag and message. Anything else stays a tool error.
func failure(err error) (domain.Status, string, error) {
	status := domain.StatusOf(err)
	if status == domain.StatusError {
		return status, "", err
	}
	return status, err.Error(), nil
}
