package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	chunkSummary string
	chunkTags    string
	chunkType    string
	chunkProject string
	chunkTicket  string
	chunkDomain  string

	grepContext   int
	grepLimit     int
	grepFuzzy     bool
	grepThreshold int
	grepProject   string
	grepDomain    string
	grepGlob      string

	listLimit int
	listGlob  string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [content]",
	Short: "Store context as a chunk",
	Long: `Stores a piece of conversation context as a chunk file.

Content is taken from the argument, or read from stdin when the argument is
omitted or "-". Identical content is stored only once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

var peekCmd = &cobra.Command{
	Use:   "peek <chunk-id> [start] [end]",
	Short: "Read a chunk",
	Long: `Prints a chunk body, or body lines [start, end) when a range is given.
Archived chunks are restored first.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runPeek,
}

var grepCmd = &cobra.Command{
	Use:   "grep <pattern>",
	Short: "Scan chunk contents",
	Long: `Scans active chunk bodies line by line with a regular expression, or
with approximate matching when --fuzzy is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrep,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored chunks",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	chunkCmd.Flags().StringVarP(&chunkSummary, "summary", "s", "", "one-line summary (derived from content when empty)")
	chunkCmd.Flags().StringVarP(&chunkTags, "tags", "t", "", "comma-separated tags")
	chunkCmd.Flags().StringVar(&chunkType, "type", string(domain.ChunkTypeSession), "snapshot, session or debug")
	chunkCmd.Flags().StringVarP(&chunkProject, "project", "p", "", "project name (detected when empty)")
	chunkCmd.Flags().StringVar(&chunkTicket, "ticket", "", "ticket reference")
	chunkCmd.Flags().StringVarP(&chunkDomain, "domain", "d", "", "work domain")

	grepCmd.Flags().IntVarP(&grepContext, "context", "C", 2, "lines of context around a regex match")
	grepCmd.Flags().IntVarP(&grepLimit, "limit", "n", 10, "maximum number of matches")
	grepCmd.Flags().BoolVarP(&grepFuzzy, "fuzzy", "f", false, "approximate matching")
	grepCmd.Flags().IntVar(&grepThreshold, "threshold", 80, "minimum fuzzy score (0-100)")
	grepCmd.Flags().StringVarP(&grepProject, "project", "p", "", "only scan this project")
	grepCmd.Flags().StringVarP(&grepDomain, "domain", "d", "", "only scan this domain")
	grepCmd.Flags().StringVar(&grepGlob, "chunks", "", "only scan chunk IDs matching this glob")

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of chunks")
	listCmd.Flags().StringVar(&listGlob, "chunks", "", "only list chunk IDs matching this glob")

	rootCmd.AddCommand(chunkCmd, peekCmd, grepCmd, listCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	if chunkService == nil {
		return errChunkUnavailable
	}

	var content string
	if len(args) == 1 && args[0] != "-" {
		content = args[0]
	} else {
		var err error
		if content, err = readAllInput(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	out, err := chunkService.Create(commandContext(cmd), driving.ChunkRequest{
		Content: content,
		Summary: chunkSummary,
		Tags:    domain.ParseTagList(chunkTags),
		Type:    domain.ChunkType(chunkType),
		Project: chunkProject,
		Ticket:  chunkTicket,
		Domain:  chunkDomain,
	})
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonFlag {
		return printJSON(cmd, out)
	}
	switch out.Status {
	case domain.StatusRedirect:
		cmd.Println(out.Message)
	case domain.StatusDuplicate:
		where := "active"
		if out.Archived {
			where = "archived"
		}
		cmd.Printf("Duplicate of %s chunk %s\n", where, out.Chunk.ID)
	default:
		cmd.Printf("Stored chunk %s (%d tokens)\n", out.Chunk.ID, out.Chunk.TokensEstimate)
	}
	return nil
}

func runPeek(cmd *cobra.Command, args []string) error {
	if chunkService == nil {
		return errChunkUnavailable
	}

	bounds := make([]int, 2)
	for i, raw := range args[1:] {
		var n int
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("invalid line number %q", raw)
		}
		bounds[i] = n
	}

	res, err := chunkService.Peek(commandContext(cmd), args[0], bounds[0], bounds[1])
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonFlag {
		return printJSON(cmd, res)
	}
	if res.Restored {
		cmd.Printf("(restored %s from archive)\n", res.ID)
	}
	cmd.Println(res.Content)
	if res.Start > 0 || res.End < res.TotalLines {
		cmd.Printf("-- lines %d-%d of %d --\n", res.Start, res.End, res.TotalLines)
	}
	return nil
}

func runGrep(cmd *cobra.Command, args []string) error {
	if chunkService == nil {
		return errChunkUnavailable
	}

	res, err := chunkService.Grep(commandContext(cmd), driving.GrepRequest{
		Pattern:   args[0],
		Context:   grepContext,
		Limit:     grepLimit,
		Fuzzy:     grepFuzzy,
		Threshold: grepThreshold,
		Filters:   domain.SearchFilters{Project: grepProject, Domain: grepDomain},
		IDGlob:    grepGlob,
	})
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonFlag {
		return printJSON(cmd, res)
	}
	if len(res.Matches) == 0 {
		cmd.Println("No matches found.")
		return nil
	}
	for _, m := range res.Matches {
		if res.Fuzzy {
			cmd.Printf("%s:%d (%d) %s\n", m.ChunkID, m.LineNumber, m.Score, m.Context)
			continue
		}
		cmd.Printf("%s:%d  %s\n", m.ChunkID, m.LineNumber, m.ChunkSummary)
		for _, line := range strings.Split(m.Context, "\n") {
			cmd.Printf("    %s\n", line)
		}
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if chunkService == nil {
		return errChunkUnavailable
	}

	listing, err := chunkService.List(commandContext(cmd), driving.ListRequest{Limit: listLimit, IDGlob: listGlob})
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonFlag {
		return printJSON(cmd, listing)
	}
	if len(listing.Chunks) == 0 {
		cmd.Println("No chunks stored.")
		return nil
	}
	for i := range listing.Chunks {
		printChunkLine(cmd, &listing.Chunks[i])
	}
	cmd.Println()
	cmd.Printf("Showing %d of %d chunks (%d tokens total)\n",
		len(listing.Chunks), listing.TotalChunks, listing.TotalTokens)
	return nil
}
