package graphics

import "testing"

func TestCreateBackendSelectsByType(t *testing.T) {
	cases := map[BackendType]string{
		BackendHeadless: "Headless",
		BackendTerminal: "Terminal",
	}
	for bt, name := range cases {
		b, err := CreateBackend(bt)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", bt, err)
		}
		if b.GetName() != name {
			t.Fatalf("%s: expected name %q, got %q", bt, name, b.GetName())
		}
	}
}

func TestHeadlessBackendLifecycle(t *testing.T) {
	b := NewHeadlessBackend()
	if err := b.Initialize(Config{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := b.CreateWindow("test", 256, 240); err != nil {
		t.Fatalf("create window: %v", err)
	}
	if !b.IsHeadless() {
		t.Fatal("expected headless backend to report headless")
	}
	if err := b.Initialize(Config{}); err == nil {
		t.Fatal("expected double-initialize to fail")
	}
}

func TestHeadlessWindowCountsRenderedFrames(t *testing.T) {
	b := NewHeadlessBackend()
	b.Initialize(Config{})
	w, _ := b.CreateWindow("test", 256, 240)
	hw := w.(*HeadlessWindow)

	var fb [256 * 240]uint32
	for i := 0; i < 3; i++ {
		if err := w.RenderFrame(fb); err != nil {
			t.Fatalf("render frame: %v", err)
		}
	}
	if hw.GetFrameCount() != 3 {
		t.Fatalf("expected 3 frames counted, got %d", hw.GetFrameCount())
	}
}

func TestWindowCloseLifecycle(t *testing.T) {
	b := NewTerminalBackend()
	b.Initialize(Config{})
	w, _ := b.CreateWindow("test", 256, 240)

	if w.ShouldClose() {
		t.Fatal("expected window open right after creation")
	}
	w.Cleanup()
	if !w.ShouldClose() {
		t.Fatal("expected window closed after Cleanup")
	}
}

func TestPixelRGBExtractsChannelsFromTaggedWord(t *testing.T) {
	r, g, b := pixelRGB(0x11223344)
	if r != 0x11 || g != 0x22 || b != 0x33 {
		t.Fatalf("expected (0x11,0x22,0x33), got (%#02x,%#02x,%#02x)", r, g, b)
	}
}
