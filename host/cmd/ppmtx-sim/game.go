//go:build !tinygo

package main

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"ppmtx/config"
	"ppmtx/core"
	"ppmtx/host/sim"
	"ppmtx/mix"
)

const (
	screenWidth  = 400
	screenHeight = 300

	// Stick travel per update while a key is held, and spring return
	stickRate  = 40
	springRate = 60
)

var errQuit = errors.New("quit")

var (
	colorBar      = color.RGBA{0x40, 0xa0, 0xff, 0xff}
	colorCenter   = color.RGBA{0x80, 0x80, 0x80, 0xff}
	colorMark     = color.RGBA{0xff, 0xc0, 0x40, 0xff}
	colorWaveform = color.RGBA{0x60, 0xff, 0x60, 0xff}
)

// digitKeys select multi-position channels 1..8
var digitKeys = [...]ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4,
	ebiten.Key5, ebiten.Key6, ebiten.Key7, ebiten.Key8,
}

var toggleKeys = [...]struct {
	key  ebiten.Key
	kind mix.EventKind
}{
	{ebiten.KeyC, mix.EventCrab},
	{ebiten.KeyB, mix.EventBrakeCut},
}

type game struct {
	sim *sim.Sim
	cfg *config.Config
}

func newGame(s *sim.Sim) *game {
	return &game{sim: s, cfg: s.TX.Config()}
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return errQuit
	}

	g.pollSticks()
	g.pollEvents()
	g.sim.Step(time.Now())
	return nil
}

// pollSticks moves steering with left/right and throttle with up/down;
// released sticks spring back to center
func (g *game) pollSticks() {
	st := g.sim.Sticks
	axis := func(axis config.Axis, minus, plus ebiten.Key) {
		switch {
		case ebiten.IsKeyPressed(plus):
			st.Move(axis, stickRate)
		case ebiten.IsKeyPressed(minus):
			st.Move(axis, -stickRate)
		default:
			st.Release(axis, springRate)
		}
	}
	axis(config.AxisSteering, ebiten.KeyArrowLeft, ebiten.KeyArrowRight)
	axis(config.AxisThrottle, ebiten.KeyArrowDown, ebiten.KeyArrowUp)

	// The aux knob stays where it is left
	if ebiten.IsKeyPressed(ebiten.KeyPageUp) {
		st.Move(config.AxisAux, stickRate/4)
	}
	if ebiten.IsKeyPressed(ebiten.KeyPageDown) {
		st.Move(config.AxisAux, -stickRate/4)
	}
}

func (g *game) pollEvents() {
	post := func(ev mix.Event) {
		if !g.sim.Post(ev) {
			core.DebugPrintln("[SIM] event queue full, dropped " + ev.Kind.String())
		}
	}

	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	delta := int8(1)
	if shift {
		delta = -1
	}

	for i, key := range digitKeys {
		if inpututil.IsKeyJustPressed(key) {
			post(mix.Event{Kind: mix.EventMultiPosition, Channel: uint8(i + 1), Delta: delta})
		}
	}
	// C and B stand in for the radio's push buttons when the config wires
	// them, so presses go through the debounced GPIO path
	for _, k := range toggleKeys {
		if g.sim.Buttons.Hold(k.kind.String(), ebiten.IsKeyPressed(k.key)) {
			continue
		}
		if inpututil.IsKeyJustPressed(k.key) {
			post(mix.Event{Kind: k.kind})
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		post(mix.Event{Kind: mix.EventDIGMix, Delta: 5 * delta})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		post(mix.Event{Kind: mix.EventFourWSMix, Delta: 5 * delta})
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	gen := g.sim.TX.Generator()
	active := gen.Active()
	n := int(g.cfg.Model.Channels)

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s  frames %d  skipped %d",
		g.cfg.Model.Name, gen.Frames(), g.sim.TX.Engine().Skipped()), 8, 4)

	// One bar per channel, centered on 1500us, +-800us full width
	const barLeft, barWidth, barHeight = 80, 300, 14
	center := float32(barLeft + barWidth/2)
	for ch := 1; ch <= n; ch++ {
		y := float32(24 + (ch-1)*(barHeight+6))
		us := gen.PulseUS(active, ch)
		w := (float32(us) - 1500) * (barWidth / 2) / 800
		if w >= 0 {
			vector.DrawFilledRect(screen, center, y, w, barHeight, colorBar, false)
		} else {
			vector.DrawFilledRect(screen, center+w, y, -w, barHeight, colorBar, false)
		}
		vector.StrokeLine(screen, center, y, center, y+barHeight, 1, colorCenter, false)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("CH%d %4d", ch, us), 8, int(y))
	}

	g.drawWaveform(screen, float32(screenHeight-60))

	st := g.sim.Sticks
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("steer %+5d  thr %+5d  aux %+5d",
		st.Position(config.AxisSteering), st.Position(config.AxisThrottle), st.Position(config.AxisAux)),
		8, screenHeight-20)
}

// drawWaveform plots the last emitted frame: high during each mark, low
// during each space
func (g *game) drawWaveform(screen *ebiten.Image, y float32) {
	frame := g.sim.Timer.LastFrame()
	if len(frame) == 0 {
		return
	}
	var total uint32
	for _, p := range frame {
		total += p.Period
	}

	const left, width, height = 8, screenWidth - 16, 24
	scale := float32(width) / float32(total)
	x := float32(left)
	for _, p := range frame {
		mark := float32(p.Mark) * scale
		space := float32(p.Period-uint32(p.Mark)) * scale
		vector.DrawFilledRect(screen, x, y, mark, height, colorMark, false)
		vector.StrokeLine(screen, x+mark, y+height, x+mark+space, y+height, 1, colorWaveform, false)
		x += mark + space
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
