package jusbrasil

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Prompter wartet auf die Bestätigung eines Menschen (z.B. nach gelöstem Captcha).
type Prompter interface {
	Confirm(ctx context.Context, msg string) error
}

// StdinPrompter liest Bestätigungen zeilenweise aus einer Quelle.
// Es läuft höchstens ein Lesevorgang gleichzeitig; ein durch ctx abgebrochener
// Lesevorgang wird vom nächsten Confirm übernommen, statt eine Zeile zu verschlucken.
type StdinPrompter struct {
	out io.Writer
	r   *bufio.Reader

	mu      sync.Mutex
	pending chan error
}

var stdinPrompter = sync.OnceValue(func() *StdinPrompter {
	return NewStdinPrompter(os.Stdin, os.Stdout)
})

// Stdin liefert den prozessweit geteilten Prompter für os.Stdin / os.Stdout.
func Stdin() *StdinPrompter {
	return stdinPrompter()
}

// NewStdinPrompter erstellt einen Prompter über in und out.
func NewStdinPrompter(in io.Reader, out io.Writer) *StdinPrompter {
	return &StdinPrompter{out: out, r: bufio.NewReader(in)}
}

// Confirm schreibt msg und blockiert bis Enter oder ctx-Abbruch.
func (p *StdinPrompter) Confirm(ctx context.Context, msg string) error {
	fmt.Fprintf(p.out, "%s [Enter para continuar] ", msg)

	p.mu.Lock()
	if p.pending == nil {
		ch := make(chan error, 1)
		p.pending = ch
		go func() {
			_, err := p.r.ReadString('\n')
			if err == io.EOF {
				err = fmt.Errorf("jusbrasil: entrada encerrada sem confirmação")
			}
			ch <- err
		}()
	}
	ch := p.pending
	p.mu.Unlock()

	select {
	case err := <-ch:
		p.mu.Lock()
		if p.pending == ch {
			p.pending = nil
		}
		p.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
