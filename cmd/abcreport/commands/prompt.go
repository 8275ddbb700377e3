package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompter asks for values missing from the command line, one line each.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%v: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// fillDates asks for the dates missing from the command line when stdin is a terminal.
func (p *prompter) fillDates(start, end *string) error {
	for _, v := range []struct {
		label string
		value *string
	}{
		{"Start date (e.g. May 30, 2024)", start},
		{"End date", end},
	} {
		if *v.value != "" {
			continue
		}
		if !isTerminal() {
			return errors.New("both --start and --end are required")
		}
		s, err := p.ask(v.label)
		if err != nil {
			return err
		}
		*v.value = s
	}
	return nil
}
