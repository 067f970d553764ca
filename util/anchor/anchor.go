package anchor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"atomicgo.dev/cursor"
	"github.com/fatih/color"
)

type Color color.Attribute

const (
	Red    = Color(color.FgRed)
	Green  = Color(color.FgGreen)
	Yellow = Color(color.FgYellow)
	Cyan   = Color(color.FgCyan)
)

// Anchor prints log lines above a block of "lots",
// single status lines rewritten in place, one per stage
type Anchor struct {
	mu     sync.Mutex
	color  *color.Color
	out    io.Writer
	in     *bufio.Reader
	lots   map[string]*Lot
	order  []string
	drawn  int
	redraw bool
}

type Lot struct {
	anchor *Anchor
	name   string
	text   string
}

func New(c Color) *Anchor {
	return &Anchor{
		color:  color.New(color.Attribute(c), color.Bold),
		out:    color.Output,
		in:     bufio.NewReader(os.Stdin),
		lots:   make(map[string]*Lot),
		redraw: !color.NoColor,
	}
}

// Plain returns an anchor writing to out without cursor movements
func Plain(out io.Writer, in io.Reader) *Anchor {
	plain := color.New(color.Reset)
	plain.DisableColor()
	return &Anchor{
		color: plain,
		out:   out,
		in:    bufio.NewReader(in),
		lots:  make(map[string]*Lot),
	}
}

func (anchor *Anchor) Printf(format string, a ...interface{}) {
	anchor.mu.Lock()
	defer anchor.mu.Unlock()
	anchor.clear()
	fmt.Fprintln(anchor.out, fmt.Sprintf(format, a...))
	anchor.draw()
}

// AnchorPrintf prints a highlighted line, used for failures
func (anchor *Anchor) AnchorPrintf(format string, a ...interface{}) {
	anchor.mu.Lock()
	defer anchor.mu.Unlock()
	anchor.clear()
	fmt.Fprintln(anchor.out, anchor.color.Sprintf(format, a...))
	anchor.draw()
}

// Reads prompts the user and returns the trimmed answer
func (anchor *Anchor) Reads(prompt string) string {
	anchor.mu.Lock()
	anchor.clear()
	fmt.Fprint(anchor.out, anchor.color.Sprint(prompt)+" ")
	anchor.mu.Unlock()

	line, _ := anchor.in.ReadString('\n')

	anchor.mu.Lock()
	anchor.draw()
	anchor.mu.Unlock()
	return strings.TrimSpace(line)
}

func (anchor *Anchor) Lot(name string) *Lot {
	anchor.mu.Lock()
	defer anchor.mu.Unlock()
	if lot, ok := anchor.lots[name]; ok {
		return lot
	}
	lot := &Lot{anchor: anchor, name: name}
	anchor.lots[name] = lot
	anchor.order = append(anchor.order, name)
	return lot
}

func (lot *Lot) Print(text string) {
	lot.anchor.mu.Lock()
	defer lot.anchor.mu.Unlock()
	lot.anchor.clear()
	lot.text = text
	lot.anchor.draw()
}

func (lot *Lot) Printf(format string, a ...interface{}) {
	lot.Print(fmt.Sprintf(format, a...))
}

// Wipe blanks the lot, keeping its slot
func (lot *Lot) Wipe() {
	lot.Print("")
}

// Close prints the final message for the lot and releases its slot
func (lot *Lot) Close(message ...string) {
	anchor := lot.anchor
	anchor.mu.Lock()
	defer anchor.mu.Unlock()
	anchor.clear()
	if _, ok := anchor.lots[lot.name]; ok {
		delete(anchor.lots, lot.name)
		for i, name := range anchor.order {
			if name == lot.name {
				anchor.order = append(anchor.order[:i], anchor.order[i+1:]...)
				break
			}
		}
	}
	text := "done"
	if len(message) > 0 {
		text = strings.Join(message, " ")
	}
	fmt.Fprintf(anchor.out, "%s %s\n", anchor.color.Sprint(lot.name), text)
	anchor.draw()
}

func (anchor *Anchor) clear() {
	if anchor.redraw && anchor.drawn > 0 {
		cursor.ClearLinesUp(anchor.drawn)
		cursor.StartOfLine()
	}
	anchor.drawn = 0
}

func (anchor *Anchor) draw() {
	if !anchor.redraw {
		return
	}
	for _, name := range anchor.order {
		lot := anchor.lots[name]
		fmt.Fprintf(anchor.out, "%s %s\n", anchor.color.Sprint(lot.name), lot.text)
		anchor.drawn++
	}
}
