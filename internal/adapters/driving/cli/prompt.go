package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter asks questions on the command's output and reads answers from
// its input. One prompter must be used per command so buffered input is
// not lost between questions.
type prompter struct {
	cmd *cobra.Command
	in  *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, in: bufio.NewReader(cmd.InOrStdin())}
}

// line prints label and returns the trimmed answer, or def when the answer
// is empty.
func (p *prompter) line(label, def string) string {
	if def != "" {
		p.cmd.Printf("%s [%s]: ", label, def)
	} else {
		p.cmd.Printf("%s: ", label)
	}
	answer := readLine(p.in)
	if answer == "" {
		return def
	}
	return answer
}

// choose lists options numbered from 1 and returns the chosen index into
// options. def is 1-based; def 0 means there is no default and a bad
// answer returns ok=false.
func (p *prompter) choose(options []string, def int) (int, bool) {
	for i, opt := range options {
		p.cmd.Printf("  %d. %s\n", i+1, opt)
	}
	if def > 0 {
		p.cmd.Printf("\nEnter choice [%d]: ", def)
	} else {
		p.cmd.Print("\nEnter choice: ")
	}
	n := parseChoice(readLine(p.in), len(options), def)
	if n == 0 {
		return 0, false
	}
	return n - 1, true
}

// secret reads a value without echo on a terminal.
func (p *prompter) secret(label string) string {
	p.cmd.Printf("%s: ", label)
	s := readPassword(p.in)
	p.cmd.Println()
	return s
}

// heading prints title underlined to its own width.
func (p *prompter) heading(title string) {
	p.cmd.Println(title)
	p.cmd.Println(strings.Repeat("-", len(title)))
}

func readLine(r *bufio.Reader) string {
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

// parseChoice turns a 1-based menu answer into a number in [1, n], or def.
func parseChoice(answer string, n, def int) int {
	if answer == "" {
		return def
	}
	v, err := strconv.Atoi(answer)
	if err != nil || v < 1 || v > n {
		return def
	}
	return v
}

// readPassword reads from the terminal without echo when stdin is one,
// and a plain line from in otherwise.
func readPassword(in io.Reader) string {
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		if b, err := term.ReadPassword(fd); err == nil {
			return string(b)
		}
	}
	r, ok := in.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(in)
	}
	return readLine(r)
}

// maskAPIKey keeps the first and last four characters of a key.
func maskAPIKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	}
	return fmt.Sprintf("%s...%s", key[:4], key[len(key)-4:])
}
