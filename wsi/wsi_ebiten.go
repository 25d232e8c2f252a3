// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"errors"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Window glue is treated as an external collaborator: this
// file wires the Window/keyboard/pointer interfaces above to
// ebiten's run loop rather than reimplementing a windowing
// backend. It is the only Platform that this package can
// guarantee builds on every supported GOOS.

func initEbiten() {
	newWindow = newWindowEbiten
	dispatch = dispatchEbiten
	setAppName = setAppNameEbitenNoop
	platform = Ebiten
}

// ebitenWindow is the sole Window; ebiten itself only models
// a single game window, so NewWindow after the first call
// simply returns the existing one resized/retitled.
type ebitenWindow struct {
	mu      sync.Mutex
	w, h    int
	title   string
	mapped  bool
	closed  bool
	game    *ebitenGame
}

type ebitenGame struct{ win *ebitenWindow }

func (g *ebitenGame) Layout(outW, outH int) (int, int) {
	g.win.mu.Lock()
	defer g.win.mu.Unlock()
	return g.win.w, g.win.h
}

func (g *ebitenGame) Update() error {
	for _, k := range inpututil.AppendPressedKeys(nil) {
		if keyboardHandler == nil {
			continue
		}
		pressed := inpututil.IsKeyJustPressed(k)
		released := inpututil.IsKeyJustReleased(k)
		if pressed || released {
			keyboardHandler.KeyboardKey(keyFromEbiten(k), pressed, modifiersEbiten())
		}
	}
	x, y := ebiten.CursorPosition()
	if pointerHandler != nil {
		pointerHandler.PointerMotion(x, y)
		for btn, eb := range ebitenButtons {
			switch {
			case inpututil.IsMouseButtonJustPressed(eb):
				pointerHandler.PointerButton(btn, true, x, y)
			case inpututil.IsMouseButtonJustReleased(eb):
				pointerHandler.PointerButton(btn, false, x, y)
			}
		}
	}
	if g.win.closed {
		return errEbitenClosed
	}
	return nil
}

func (g *ebitenGame) Draw(*ebiten.Image) {}

var errEbitenClosed = errors.New("wsi: window closed")

var singleEbitenWindow *ebitenWindow

func newWindowEbiten(width, height int, title string) (Window, error) {
	if singleEbitenWindow != nil && !singleEbitenWindow.closed {
		return nil, errors.New("wsi: ebiten backend supports a single window")
	}
	win := &ebitenWindow{w: width, h: height, title: title}
	win.game = &ebitenGame{win: win}
	singleEbitenWindow = win
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(title)
	return win, nil
}

func (w *ebitenWindow) Map() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mapped = true
	return nil
}

func (w *ebitenWindow) Unmap() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mapped = false
	return nil
}

func (w *ebitenWindow) Resize(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.w, w.h = width, height
	ebiten.SetWindowSize(width, height)
	if windowHandler != nil {
		windowHandler.WindowResize(w, width, height)
	}
	return nil
}

func (w *ebitenWindow) SetTitle(title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
	ebiten.SetWindowTitle(title)
	return nil
}

func (w *ebitenWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	closeWindow(w)
	if windowHandler != nil {
		windowHandler.WindowClose(w)
	}
}

func (w *ebitenWindow) Width() int  { w.mu.Lock(); defer w.mu.Unlock(); return w.w }
func (w *ebitenWindow) Height() int { w.mu.Lock(); defer w.mu.Unlock(); return w.h }
func (w *ebitenWindow) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// dispatchEbiten calls ebiten.ScheduleFrame, which requests
// one more frame from ebiten's run loop. It does not call
// ebiten.RunGame, and nothing in this package does, so
// ebitenGame.Update (which delivers keyboard and pointer
// events to the handlers) runs only when a run loop has been
// started elsewhere. Package pipeline does not call Dispatch.
func dispatchEbiten() {
	ebiten.ScheduleFrame()
}

func setAppNameEbitenNoop(string) {}

var ebitenButtons = map[Button]ebiten.MouseButton{
	BtnLeft:     ebiten.MouseButtonLeft,
	BtnRight:    ebiten.MouseButtonRight,
	BtnMiddle:   ebiten.MouseButtonMiddle,
	BtnForward:  ebiten.MouseButton3,
	BtnBackward: ebiten.MouseButton4,
}

func modifiersEbiten() Modifier {
	var m Modifier
	if ebiten.IsKeyPressed(ebiten.KeyCapsLock) {
		m |= ModCapsLock
	}
	if ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		m |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight) {
		m |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAltLeft) || ebiten.IsKeyPressed(ebiten.KeyAltRight) {
		m |= ModAlt
	}
	return m
}

func keyFromEbiten(k ebiten.Key) Key {
	if v, ok := ebitenKeymap[k]; ok {
		return v
	}
	return KeyUnknown
}

var ebitenKeymap = map[ebiten.Key]Key{
	ebiten.KeyA: KeyA, ebiten.KeyB: KeyB, ebiten.KeyC: KeyC, ebiten.KeyD: KeyD,
	ebiten.KeyE: KeyE, ebiten.KeyF: KeyF, ebiten.KeyG: KeyG, ebiten.KeyH: KeyH,
	ebiten.KeyI: KeyI, ebiten.KeyJ: KeyJ, ebiten.KeyK: KeyK, ebiten.KeyL: KeyL,
	ebiten.KeyM: KeyM, ebiten.KeyN: KeyN, ebiten.KeyO: KeyO, ebiten.KeyP: KeyP,
	ebiten.KeyQ: KeyQ, ebiten.KeyR: KeyR, ebiten.KeyS: KeyS, ebiten.KeyT: KeyT,
	ebiten.KeyU: KeyU, ebiten.KeyV: KeyV, ebiten.KeyW: KeyW, ebiten.KeyX: KeyX,
	ebiten.KeyY: KeyY, ebiten.KeyZ: KeyZ,
	ebiten.Key0: Key0, ebiten.Key1: Key1, ebiten.Key2: Key2, ebiten.Key3: Key3,
	ebiten.Key4: Key4, ebiten.Key5: Key5, ebiten.Key6: Key6, ebiten.Key7: Key7,
	ebiten.Key8: Key8, ebiten.Key9: Key9,
	ebiten.KeySpace: KeySpace, ebiten.KeyEnter: KeyReturn, ebiten.KeyTab: KeyTab,
	ebiten.KeyBackspace: KeyBackspace, ebiten.KeyEscape: KeyEsc,
	ebiten.KeyShiftLeft: KeyLShift, ebiten.KeyShiftRight: KeyRShift,
	ebiten.KeyControlLeft: KeyLCtrl, ebiten.KeyControlRight: KeyRCtrl,
	ebiten.KeyAltLeft: KeyLAlt, ebiten.KeyAltRight: KeyRAlt,
	ebiten.KeyUp: KeyUp, ebiten.KeyDown: KeyDown, ebiten.KeyLeft: KeyLeft, ebiten.KeyRight: KeyRight,
	ebiten.KeyF1: KeyF1, ebiten.KeyF2: KeyF2, ebiten.KeyF3: KeyF3, ebiten.KeyF4: KeyF4,
	ebiten.KeyF5: KeyF5, ebiten.KeyF6: KeyF6, ebiten.KeyF7: KeyF7, ebiten.KeyF8: KeyF8,
	ebiten.KeyF9: KeyF9, ebiten.KeyF10: KeyF10, ebiten.KeyF11: KeyF11, ebiten.KeyF12: KeyF12,
}
