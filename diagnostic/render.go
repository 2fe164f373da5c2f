package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Renderer prints a Bag against the source text it was produced from,
// pointing at each diagnostic's byte range with a caret line. Color is only
// emitted when the target stream is a real terminal.
type Renderer struct {
	out   io.Writer
	color bool
}

// NewRenderer builds a Renderer for w. If w is os.Stdout/os.Stderr and it is
// a TTY, ANSI color codes are used (via go-colorable so this also works on
// legacy Windows consoles); otherwise output is plain text.
func NewRenderer(w io.Writer) *Renderer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return &Renderer{out: w, color: color}
}

// TerminalWidth returns the current width of stderr, falling back to 80
// when it isn't a TTY.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func (r *Renderer) paint(code, text string) string {
	if !r.color {
		return text
	}
	return code + text + "\x1b[0m"
}

// Render writes every diagnostic in the bag to the renderer's stream,
// source text provided so the caret line can be reconstructed.
func (r *Renderer) Render(source string, bag *Bag) {
	for _, d := range bag.Items() {
		r.renderOne(source, d)
	}
}

func (r *Renderer) renderOne(source string, d Diagnostic) {
	sev := "error"
	code := "\x1b[31;1m"
	if d.Severity == SeverityWarning {
		sev = "warning"
		code = "\x1b[33;1m"
	}
	fmt.Fprintf(r.out, "%s: %s\n", r.paint(code, sev), d.Message)

	line := lineContaining(source, d.Location.Start)
	if line.text != "" {
		fmt.Fprintf(r.out, "  %s\n", line.text)
		caretLen := d.Location.End - d.Location.Start
		if caretLen < 1 {
			caretLen = 1
		}
		if d.Location.Start-line.start+caretLen > len(line.text) {
			caretLen = len(line.text) - (d.Location.Start - line.start)
		}
		if caretLen < 1 {
			caretLen = 1
		}
		pad := strings.Repeat(" ", d.Location.Start-line.start)
		caret := strings.Repeat("^", caretLen)
		fmt.Fprintf(r.out, "  %s%s\n", pad, r.paint(code, caret))
	}

	if d.FixIt != nil {
		switch d.FixIt.Kind {
		case FixItReplace:
			fmt.Fprintf(r.out, "  %s: replace with %q\n", r.paint("\x1b[32;1m", "fix-it"), d.FixIt.Text)
		case FixItAppend:
			fmt.Fprintf(r.out, "  %s: insert %q\n", r.paint("\x1b[32;1m", "fix-it"), d.FixIt.Text)
		}
	}
}

type sourceLine struct {
	text  string
	start int
}

func lineContaining(source string, offset int) sourceLine {
	if offset < 0 || offset > len(source) {
		return sourceLine{}
	}
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := strings.IndexByte(source[offset:], '\n')
	if end < 0 {
		end = len(source)
	} else {
		end += offset
	}
	return sourceLine{text: source[start:end], start: start}
}
