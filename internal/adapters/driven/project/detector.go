// Package project names the project new chunks belong to when the caller
// does not say.
package project

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/logger"
)

var _ driven.ProjectDetector = (*Detector)(nil)

// EnvVar overrides detection.
const EnvVar = "RLM_PROJECT"

// Fallback is used when nothing else yields a name.
const Fallback = "default"

// gitTimeout bounds the git lookup.
const gitTimeout = 5 * time.Second

var unsafeChars = regexp.MustCompile(`[^\w.&-]+`)

// Detector resolves the project from, in order: the RLM_PROJECT variable,
// the git top-level directory name, the working directory name.
type Detector struct {
	// Dir is where git runs; empty means the process working directory.
	Dir string

	// lookupGit is replaced in tests.
	lookupGit func(ctx context.Context, dir string) (string, error)
}

// NewDetector creates a detector rooted at dir.
func NewDetector(dir string) *Detector {
	return &Detector{Dir: dir, lookupGit: gitTopLevel}
}

// Detect never fails.
func (d *Detector) Detect(ctx context.Context) string {
	if p := Sanitize(os.Getenv(EnvVar)); p != "" {
		return p
	}

	lookup := d.lookupGit
	if lookup == nil {
		lookup = gitTopLevel
	}
	gitCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	if top, err := lookup(gitCtx, d.Dir); err == nil {
		if p := Sanitize(filepath.Base(top)); p != "" {
			return p
		}
	} else {
		logger.Debug("project detection: git lookup failed: %v", err)
	}

	dir := d.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if p := Sanitize(filepath.Base(dir)); p != "" && p != "." {
		return p
	}
	return Fallback
}

// Sanitize makes name usable inside a chunk ID by replacing unsafe runs
// (including "_", the ID separator) with "-".
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = unsafeChars.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

func gitTopLevel(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Static always returns the same name.
type Static string

// Detect returns s.
func (s Static) Detect(context.Context) string { return string(s) }
