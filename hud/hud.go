// Package hud shows live frame statistics in the terminal.
package hud

import (
	"fmt"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"

	"github.com/perlw/vkmodel/frame"
)

const refresh = 250 * time.Millisecond

type Display struct {
	title string

	last       time.Time
	lastFrames uint64
	fps        float64
}

func New(title string) (*Display, error) {
	if err := termbox.Init(); err != nil {
		return nil, err
	}
	termbox.SetOutputMode(termbox.Output256)
	termbox.HideCursor()

	return &Display{
		title: title,
		last:  time.Now(),
	}, nil
}

// Update redraws at most every refresh interval.
func (d *Display) Update(stats frame.Stats) {
	now := time.Now()
	elapsed := now.Sub(d.last)
	if elapsed < refresh {
		return
	}
	d.fps = rate(stats.Frames-d.lastFrames, elapsed)
	d.last = now
	d.lastFrames = stats.Frames

	width, height := termbox.Size()
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	for y, line := range Layout(d.title, stats, d.fps, width) {
		if y >= height {
			break
		}
		fg := termbox.ColorWhite
		if y == 0 {
			fg = termbox.ColorYellow | termbox.AttrBold
		}
		put(0, y, line, fg)
	}
	termbox.Flush()
}

func (d *Display) Close() {
	termbox.Close()
}

func rate(frames uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(frames) / elapsed.Seconds()
}

// Layout renders stats as terminal lines no wider than width columns.
func Layout(title string, stats frame.Stats, fps float64, width int) []string {
	lines := []string{
		title,
		fmt.Sprintf("frames    %d", stats.Frames),
		fmt.Sprintf("fps       %.1f", fps),
		fmt.Sprintf("rebuilds  %d", stats.Rebuilds),
		fmt.Sprintf("slot      %d", stats.Slot),
		fmt.Sprintf("images    %d", stats.Images),
		fmt.Sprintf("extent    %dx%d", stats.Width, stats.Height),
	}
	if width <= 0 {
		return lines
	}
	for t, line := range lines {
		lines[t] = runewidth.Truncate(line, width, "~")
	}
	return lines
}

func put(x, y int, s string, fg termbox.Attribute) {
	for _, r := range s {
		termbox.SetCell(x, y, r, fg, termbox.ColorDefault)
		x += runewidth.RuneWidth(r)
	}
}
