package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNonInteractive is returned when input is required but prompting is disabled.
var ErrNonInteractive = errors.New("prompt: input required but running non-interactively")

type Prompter interface {
	YesNo(msg string, defaultYes bool) (bool, error)
	Text(msg string) (string, error)
	// Secret reads a value without echoing it when input is a terminal.
	Secret(msg string) (string, error)
}

type cliPrompter struct {
	raw            io.Reader
	in             *bufio.Reader
	out            io.Writer
	nonInteractive bool
}

// NewCLIPrompter reads answers from in. Non-interactive prompters take the
// default for yes/no questions and fail on free text.
func NewCLIPrompter(in io.Reader, out io.Writer, nonInteractive bool) Prompter {
	return &cliPrompter{raw: in, in: bufio.NewReader(in), out: out, nonInteractive: nonInteractive}
}

func (p *cliPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *cliPrompter) YesNo(msg string, defaultYes bool) (bool, error) {
	if p.nonInteractive {
		return defaultYes, nil
	}

	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", msg, hint)
	input, err := p.readLine()
	if err != nil {
		return false, err
	}
	if input == "" {
		return defaultYes, nil
	}
	return strings.HasPrefix(strings.ToLower(input), "y"), nil
}

func (p *cliPrompter) Text(msg string) (string, error) {
	if p.nonInteractive {
		return "", ErrNonInteractive
	}
	fmt.Fprintf(p.out, "%s: ", msg)
	return p.readLine()
}

func (p *cliPrompter) Secret(msg string) (string, error) {
	if p.nonInteractive {
		return "", ErrNonInteractive
	}
	fmt.Fprintf(p.out, "%s: ", msg)

	if f, ok := p.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(msg), err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	return p.readLine()
}
