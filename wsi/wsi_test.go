// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

import "testing"

type noopHandler struct{}

func (noopHandler) WindowClose(Window)                  {}
func (noopHandler) WindowResize(Window, int, int)        {}
func (noopHandler) KeyboardIn(Window)                    {}
func (noopHandler) KeyboardOut(Window)                   {}
func (noopHandler) KeyboardKey(Key, bool, Modifier)      {}
func (noopHandler) PointerIn(Window, int, int)           {}
func (noopHandler) PointerOut(Window)                    {}
func (noopHandler) PointerMotion(int, int)                {}
func (noopHandler) PointerButton(Button, bool, int, int)  {}

func TestPlatformString(t *testing.T) {
	for p, want := range map[Platform]string{
		None: "none", Android: "android", Wayland: "wayland",
		Win32: "win32", XCB: "xcb", Ebiten: "ebiten",
	} {
		if got := p.String(); got != want {
			t.Errorf("Platform(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestHeadlessNewWindow(t *testing.T) {
	SetHeadless()
	if _, err := NewWindow(640, 480, "test"); err == nil {
		t.Error("NewWindow succeeded under SetHeadless, want error")
	}
	if PlatformInUse() != None {
		t.Errorf("PlatformInUse() = %v, want None", PlatformInUse())
	}
	initEbiten()
}

func TestHandlers(t *testing.T) {
	h := noopHandler{}
	SetWindowHandler(h)
	SetKeyboardHandler(h)
	SetPointerHandler(h)
	if windowHandler == nil || keyboardHandler == nil || pointerHandler == nil {
		t.Error("handlers were not registered")
	}
}

func TestAppName(t *testing.T) {
	SetAppName("kestrel")
	if AppName() != "kestrel" {
		t.Errorf("AppName() = %q, want %q", AppName(), "kestrel")
	}
}
