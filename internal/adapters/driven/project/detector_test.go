package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"rlm":            "rlm",
		"My Project":     "My-Project",
		"snake_case_dir": "snake-case-dir",
		"r&d.v2":         "r&d.v2",
		"  /weird//  ":   "weird",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestDetector_Priority(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "work dir")

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(EnvVar, "FromEnv")
		d := &Detector{Dir: dir, lookupGit: func(context.Context, string) (string, error) {
			t.Fatal("git should not run")
			return "", nil
		}}
		assert.Equal(t, "FromEnv", d.Detect(ctx))
	})

	t.Run("git top level", func(t *testing.T) {
		t.Setenv(EnvVar, "")
		d := &Detector{Dir: dir, lookupGit: func(context.Context, string) (string, error) {
			return "/src/my_repo", nil
		}}
		assert.Equal(t, "my-repo", d.Detect(ctx))
	})

	t.Run("working directory", func(t *testing.T) {
		t.Setenv(EnvVar, "")
		d := &Detector{Dir: dir, lookupGit: func(context.Context, string) (string, error) {
			return "", errors.New("not a repository")
		}}
		assert.Equal(t, "work-dir", d.Detect(ctx))
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv(EnvVar, "")
		d := &Detector{Dir: "/", lookupGit: func(context.Context, string) (string, error) {
			return "", errors.New("not a repository")
		}}
		assert.Equal(t, Fallback, d.Detect(ctx))
	})
}

func TestStatic(t *testing.T) {
	assert.Equal(t, "fixed", Static("fixed").Detect(context.Background()))
}
