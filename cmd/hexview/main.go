// hexview draws chunk residency of a running hexworld engine in the terminal.
// It connects to the engine's observer endpoint.
//
// Usage:
//
//	HEXVIEW_ADDR=127.0.0.1:7070 go run ./cmd/hexview
//
// Keys: arrows pan, c recenters and follows the camera, q or Esc quits.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"github.com/hexworld/engine/internal/observer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := "127.0.0.1:7070"
	if a := os.Getenv("HEXVIEW_ADDR"); a != "" {
		addr = a
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		return fmt.Errorf("dial observer %s: %w", addr, err)
	}
	defer conn.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	frames := make(chan observer.Message, 1024)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var m observer.Message
			if json.Unmarshal(b, &m) == nil {
				frames <- m
			}
		}
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	b := newBoard()
	redraw := time.NewTicker(100 * time.Millisecond)
	defer redraw.Stop()

	for {
		select {
		case m := <-frames:
			b.apply(m)
		case err := <-readErr:
			return fmt.Errorf("observer closed: %w", err)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyEscape, tcell.KeyCtrlC:
					return nil
				case tcell.KeyLeft:
					b.pan(-1, 0)
				case tcell.KeyRight:
					b.pan(1, 0)
				case tcell.KeyUp:
					b.pan(0, -1)
				case tcell.KeyDown:
					b.pan(0, 1)
				case tcell.KeyRune:
					switch ev.Rune() {
					case 'q':
						return nil
					case 'c':
						b.recenter()
					}
				}
			}
		case <-redraw.C:
			if b.follow {
				b.recenter()
			}
			draw(screen, b, addr)
		}
	}
}

var (
	styleVisible  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleWater    = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleBarren   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleHidden   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleFailed   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleOutdated = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleStatus   = tcell.StyleDefault.Reverse(true)
)

func glyph(c *cell) (rune, tcell.Style) {
	switch c.state {
	case cellVisible:
		switch {
		case c.water:
			return '█', styleWater
		case c.trees > 0:
			return '█', styleVisible
		default:
			return '█', styleBarren
		}
	case cellOutdated:
		return '▒', styleOutdated
	case cellHidden:
		return '░', styleHidden
	case cellFailed:
		return 'x', styleFailed
	}
	return ' ', tcell.StyleDefault
}

func draw(s tcell.Screen, b *board, addr string) {
	s.Clear()
	w, h := s.Size()
	rows := h - 1

	// two columns per chunk, odd rows shifted by one to suggest the hex layout
	for k, c := range b.cells {
		row := int(k[1]-b.originY) + rows/2
		col := int(k[0]-b.originX)*2 + w/2
		if k[1]&1 != 0 {
			col++
		}
		if row < 0 || row >= rows || col < 0 || col+1 >= w {
			continue
		}
		r, st := glyph(c)
		s.SetContent(col, row, r, nil, st)
		s.SetContent(col+1, row, r, nil, st)
	}

	visible, hidden, failed := b.counts()
	mode := "follow"
	if !b.follow {
		mode = "pan"
	}
	status := fmt.Sprintf(" %s  origin (%d,%d) %s  visible %d  hidden %d  failed %d  pop-ins %d  frames %d ",
		addr, b.originX, b.originY, mode, visible, hidden, failed, b.pops, b.frames)
	for i := 0; i < w; i++ {
		r := ' '
		if i < len(status) {
			r = rune(status[i])
		}
		s.SetContent(i, h-1, r, nil, styleStatus)
	}
	s.Show()
}
