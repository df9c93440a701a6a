package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/delve/internal/dungeon"
)

// viewer is an interactive pannable map of one layout.
type viewer struct {
	screen tcell.Screen
	layout *dungeon.Layout
	levels []float64
	cell   float64

	level  int
	offX   int
	offY   int
	cached *Level
}

func runViewer(l *dungeon.Layout, cell float64, startLevel int) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	v := &viewer{screen: screen, layout: l, levels: l.Levels(), cell: cell}
	if len(v.levels) == 0 {
		v.levels = []float64{0}
	}
	v.setLevel(startLevel)

	for {
		v.draw()
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if v.handleKey(ev) {
				return nil
			}
		}
	}
}

func (v *viewer) setLevel(i int) {
	if i < 0 {
		i = 0
	}
	if i >= len(v.levels) {
		i = len(v.levels) - 1
	}
	v.level = i
	v.cached = Rasterize(v.layout, v.levels[i], v.cell)
}

// handleKey applies one key press and reports whether to quit.
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.offY--
	case tcell.KeyDown:
		v.offY++
	case tcell.KeyLeft:
		v.offX--
	case tcell.KeyRight:
		v.offX++
	case tcell.KeyPgUp:
		v.setLevel(v.level + 1)
	case tcell.KeyPgDn:
		v.setLevel(v.level - 1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case '+', '=':
			v.setLevel(v.level + 1)
		case '-', '_':
			v.setLevel(v.level - 1)
		case '0':
			v.offX, v.offY = 0, 0
		}
	}
	return false
}

func (v *viewer) draw() {
	v.screen.Clear()
	width, height := v.screen.Size()
	lv := v.cached

	for row := 1; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := lv.At(col+v.offX, row-1+v.offY)
			if ch == cellEmpty {
				continue
			}
			v.screen.SetContent(col, row, ch, nil, styleFor(ch))
		}
	}

	status := fmt.Sprintf(" %s  seed=%s  level %d/%d (y=%g)  arrows pan, PgUp/PgDn or +/- level, q quit ",
		v.layout.Name, v.layout.Seed, v.level+1, len(v.levels), lv.Floor)
	header := tcell.StyleDefault.Reverse(true)
	for col := 0; col < width; col++ {
		ch := ' '
		if col < len(status) {
			ch = rune(status[col])
		}
		v.screen.SetContent(col, 0, ch, nil, header)
	}
	v.screen.Show()
}

func styleFor(ch rune) tcell.Style {
	style := tcell.StyleDefault
	switch ch {
	case cellStart:
		return style.Foreground(tcell.ColorGreen).Bold(true)
	case cellGoal:
		return style.Foreground(tcell.ColorRed).Bold(true)
	case cellDoor, cellHatch:
		return style.Foreground(tcell.ColorYellow)
	case cellHallway, cellShaft:
		return style.Foreground(tcell.ColorTeal)
	case cellWall:
		return style.Foreground(tcell.ColorGray)
	default:
		return style
	}
}
