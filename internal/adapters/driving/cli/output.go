package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// statusEnvelope is the JSON shape of a single-outcome command.
type statusEnvelope struct {
	Status  domain.Status `json:"status"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// printOutcome reports a status either as JSON or as one line of text.
func printOutcome(cmd *cobra.Command, status domain.Status, message string, data any) error {
	if jsonFlag {
		return printJSON(cmd, statusEnvelope{Status: status, Message: message, Data: data})
	}
	if message != "" {
		cmd.Printf("%s: %s\n", status, message)
	} else {
		cmd.Println(status)
	}
	return nil
}

// ErrReported is returned when a failure has already been written to the
// output; callers only need to set the exit code.
var ErrReported = errors.New("failure reported")

// reportFailure turns domain failures into a status. In JSON mode the
// status is printed and ErrReported returned; otherwise the error is
// returned with its status prefixed.
func reportFailure(cmd *cobra.Command, err error) error {
	status := domain.StatusOf(err)
	if status == domain.StatusError {
		return err
	}
	if jsonFlag {
		if perr := printOutcome(cmd, status, err.Error(), nil); perr != nil {
			return perr
		}
		return ErrReported
	}
	return fmt.Errorf("%s: %w", status, err)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func readAllInput(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, domain.MaxChunkContentSize+1))
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func printChunkLine(cmd *cobra.Command, c *domain.Chunk) {
	cmd.Printf("  %s  %s\n", c.ID, truncate(c.Summary, 60))
	meta := []string{string(c.Type), fmt.Sprintf("%d tokens", c.TokensEstimate)}
	if c.Tags.Len() > 0 {
		meta = append(meta, "tags: "+c.Tags.Join(", "))
	}
	if c.Project != "" {
		meta = append(meta, "project: "+c.Project)
	}
	cmd.Printf("      %s\n", strings.Join(meta, " | "))
}
