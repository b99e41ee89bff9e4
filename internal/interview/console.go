package interview

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// ConsolePrompter asks questions on a terminal, one answer per line.
type ConsolePrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewScanner(in), out: out}
}

func (p *ConsolePrompter) Ask(ctx context.Context, q Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch q.Kind {
	case KindYesNo:
		fmt.Fprintf(p.out, "%s [Answer either YES/NO] ", q.Text)
	case KindContactLevel:
		fmt.Fprintln(p.out, q.Text)
		for i, opt := range q.Options {
			fmt.Fprintf(p.out, "%d:%s\n", i+1, opt)
		}
	default:
		fmt.Fprintf(p.out, "%s ", q.Text)
	}

	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return p.in.Text(), nil
}

func (p *ConsolePrompter) Notify(_ context.Context, msg string) {
	fmt.Fprintln(p.out, msg)
}
