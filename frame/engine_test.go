package frame

import (
	"fmt"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/perlw/vkmodel/logger"
)

func drawN(t *testing.T, h *harness, n int) []int {
	t.Helper()
	slots := []int{}
	for i := 0; i < n; i++ {
		slots = append(slots, h.engine.Slot())
		if err := h.engine.Draw(); err != nil {
			t.Fatalf("draw %d: %+v", i, err)
		}
	}
	return slots
}

func TestNewCreatesSignaledSlots(t *testing.T) {
	h, err := newHarness(3, 4)
	if err != nil {
		t.Fatal(err)
	}

	if len(h.sync.fences) != 3 {
		t.Fatalf("expected 3 fences, got %d", len(h.sync.fences))
	}
	for _, f := range h.sync.fences {
		if !f.signaled {
			t.Errorf("fence %s not created signaled", f.name)
		}
	}
	if h.sync.semaphore != 6 {
		t.Errorf("expected 6 semaphores, got %d", h.sync.semaphore)
	}

	stats := h.engine.Stats()
	if stats.Images != 4 || stats.Width != 800 || stats.Height != 600 {
		t.Errorf("unexpected stats after setup %+v", stats)
	}
}

func TestNewRejectsZeroFrames(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.FramesInFlight = 0
	_, err := New(cfg, logger.NewTo("TEST", ioutil.Discard, ioutil.Discard),
		&fakeDevice{rec: rec}, &fakeWindow{rec: rec, sizes: [][2]int{{1, 1}}},
		&fakeSync{rec: rec}, &fakeTarget{rec: rec, counts: []int{2}})
	if err == nil {
		t.Fatal("expected error for zero frames in flight")
	}
}

func TestDrawOrdering(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	drawN(t, h, 1)

	expected := []string{
		"wait:F0",
		"acquire:0",
		"reset:F0",
		"update:0",
		"submit:0:F0",
		"present:0",
	}
	if len(h.rec.events) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, h.rec.events)
	}
	for i := range expected {
		if h.rec.events[i] != expected[i] {
			t.Errorf("event %d: expected %s, got %s", i, expected[i], h.rec.events[i])
		}
	}
}

func TestSlotFenceWaitedBeforeReuse(t *testing.T) {
	const frames = 2
	h, err := newHarness(frames, 3)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		start := len(h.rec.events)
		slot := h.engine.Slot()
		if err := h.engine.Draw(); err != nil {
			t.Fatalf("draw %d: %+v", i, err)
		}

		fence := fmt.Sprintf("F%d", slot)
		wait := h.rec.index("wait:"+fence, start)
		reset := h.rec.index("reset:"+fence, start)
		update := -1
		for k := start; k < len(h.rec.events); k++ {
			if strings.HasPrefix(h.rec.events[k], "update:") {
				update = k
				break
			}
		}
		if wait != start {
			t.Errorf("frame %d: slot fence wait not first, events %v", i, h.rec.events[start:])
		}
		if !(wait < reset && reset < update) {
			t.Errorf("frame %d: expected wait < reset < update, got %d %d %d", i, wait, reset, update)
		}
	}
	if h.target.conflicts != 0 {
		t.Errorf("%d writes to an image still owned by pending work", h.target.conflicts)
	}
}

func TestImageOwnerConsulted(t *testing.T) {
	// Two slots over three images: the fourth frame reacquires image 0,
	// which slot 0 still owns while slot 1 is current.
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.target.script = []acquireResult{{0, nil}, {1, nil}, {2, nil}, {0, nil}, {1, nil}}

	for i := 0; i < 5; i++ {
		start := len(h.rec.events)
		if err := h.engine.Draw(); err != nil {
			t.Fatalf("draw %d: %+v", i, err)
		}
		if i == 3 {
			frame := h.rec.events[start:]
			expected := []string{"wait:F1", "acquire:0", "wait:F0", "reset:F1", "update:0", "submit:0:F1", "present:0"}
			if fmt.Sprint(frame) != fmt.Sprint(expected) {
				t.Errorf("frame 3: expected %v, got %v", expected, frame)
			}
		}
	}

	// wait:F0 appears as a slot wait on frames 0, 2, 4 and as an owner
	// wait on frame 3.
	if n := h.rec.count("wait:F0"); n != 4 {
		t.Errorf("expected 4 waits on F0, got %d", n)
	}
	if h.target.conflicts != 0 {
		t.Errorf("%d submissions raced a pending owner", h.target.conflicts)
	}
}

func TestOwnerWaitPrecedesReset(t *testing.T) {
	// Out of order acquisition where the image owner is the current slot
	// itself must not deadlock: the slot fence was already waited.
	h, err := newHarness(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	h.target.script = []acquireResult{{1, nil}, {0, nil}, {1, nil}}
	drawN(t, h, 3)

	last := h.rec.events[len(h.rec.events)-7:]
	expected := []string{"wait:F0", "acquire:1", "wait:F0", "reset:F0", "update:1", "submit:1:F0", "present:1"}
	if fmt.Sprint(last) != fmt.Sprint(expected) {
		t.Errorf("expected %v, got %v", expected, last)
	}
}

func TestSlotSequenceSurvivesRebuilds(t *testing.T) {
	h, err := newHarness(3, 2, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.target.script = []acquireResult{
		{0, nil}, {0, ErrOutOfDate}, {1, nil}, {0, ErrOutOfDate}, {2, nil},
	}

	slots := drawN(t, h, 9)
	expected := []int{0, 1, 2, 0, 1, 2, 0, 1, 2}
	if fmt.Sprint(slots) != fmt.Sprint(expected) {
		t.Errorf("expected slots %v, got %v", expected, slots)
	}
	if h.engine.Stats().Rebuilds != 2 {
		t.Errorf("expected 2 rebuilds, got %d", h.engine.Stats().Rebuilds)
	}
}

func TestAcquireOutOfDateRebuildsOnce(t *testing.T) {
	h, err := newHarness(2, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	h.target.script = []acquireResult{{0, nil}, {1, ErrOutOfDate}}

	slots := drawN(t, h, 5)

	if h.target.builds != 2 || h.target.teardowns != 1 {
		t.Errorf("expected one rebuild, got %d builds %d teardowns", h.target.builds, h.target.teardowns)
	}
	stale := h.rec.index("acquire:1", 0)
	if h.rec.events[stale+1] != "idle" {
		t.Errorf("out of date frame continued past acquire: %v", h.rec.events)
	}
	if h.target.framebuffers != 4 || h.target.commandBuffers != 4 || h.target.descriptorSets != 4 {
		t.Errorf("per image resources do not match new chain: %d %d %d",
			h.target.framebuffers, h.target.commandBuffers, h.target.descriptorSets)
	}

	stats := h.engine.Stats()
	if stats.Images != 4 {
		t.Errorf("expected owner map of 4, got %d", stats.Images)
	}
	if stats.Frames != 4 {
		t.Errorf("expected 4 presented frames, got %d", stats.Frames)
	}
	if fmt.Sprint(slots) != fmt.Sprint([]int{0, 1, 0, 1, 0}) {
		t.Errorf("unexpected slot sequence %v", slots)
	}

	idle := h.rec.index("idle", 0)
	teardown := h.rec.index("teardown", 0)
	if idle < 0 || idle > teardown {
		t.Errorf("device idle must precede teardown: %v", h.rec.events)
	}
}

func TestRebuildClearsOwners(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	drawN(t, h, 3)
	if err := h.engine.Rebuild(); err != nil {
		t.Fatal(err)
	}

	for i, owner := range h.engine.owners {
		if owner != nil {
			t.Errorf("image %d still owned after rebuild", i)
		}
	}
	if len(h.engine.slots) != 2 || h.sync.semaphore != 4 {
		t.Errorf("slots were recreated by rebuild")
	}
}

func TestPresentStaleRebuildsAfterPresent(t *testing.T) {
	for _, err := range []error{ErrOutOfDate, ErrSuboptimal} {
		h, herr := newHarness(2, 3)
		if herr != nil {
			t.Fatal(herr)
		}
		h.target.present = []error{err}

		drawN(t, h, 1)

		present := h.rec.index("present:0", 0)
		teardown := h.rec.index("teardown", 0)
		if present < 0 || teardown < present {
			t.Errorf("%v: rebuild must follow present, got %v", err, h.rec.events)
		}
		if h.engine.Stats().Rebuilds != 1 {
			t.Errorf("%v: expected a rebuild", err)
		}
	}
}

func TestResizeLatchRebuilds(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.window.resized = true
	h.window.sizes = [][2]int{{1024, 768}}

	drawN(t, h, 2)

	if h.engine.Stats().Rebuilds != 1 {
		t.Errorf("expected one rebuild, got %d", h.engine.Stats().Rebuilds)
	}
	if h.target.sizes[1] != [2]int{1024, 768} {
		t.Errorf("rebuilt with %v", h.target.sizes[1])
	}
}

func TestAcquireSuboptimalContinues(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.target.script = []acquireResult{{0, ErrSuboptimal}}
	drawN(t, h, 1)

	if h.rec.count("submit:0:F0") != 1 {
		t.Errorf("suboptimal acquire should still submit: %v", h.rec.events)
	}
	if h.engine.Stats().Rebuilds != 0 {
		t.Errorf("suboptimal acquire alone should not rebuild")
	}
}

func TestInvalidateCoalesces(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		h.engine.Invalidate()
	}
	h.window.resized = true

	drawN(t, h, 3)

	if h.engine.Stats().Rebuilds != 1 {
		t.Errorf("expected a single rebuild, got %d", h.engine.Stats().Rebuilds)
	}
}

func TestRebuildWaitsForArea(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.window.sizes = [][2]int{{0, 0}, {0, 0}, {0, 0}, {800, 600}}

	if err := h.engine.Rebuild(); err != nil {
		t.Fatal(err)
	}

	if h.window.waits != 3 {
		t.Errorf("expected 3 event waits, got %d", h.window.waits)
	}
	if h.target.builds != 2 {
		t.Errorf("expected a single rebuild, got %d builds", h.target.builds)
	}
	if h.target.sizes[1] != [2]int{800, 600} {
		t.Errorf("rebuilt with %v", h.target.sizes[1])
	}
	if h.rec.index("waitevents", 0) > h.rec.index("idle", 0) {
		t.Errorf("device idle before area was available: %v", h.rec.events)
	}
}

func TestRebuildClosedWhileMinimized(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.window.sizes = [][2]int{{0, 0}}
	h.window.closing = true

	if err := h.engine.Rebuild(); errors.Cause(err) != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if h.target.teardowns != 0 {
		t.Errorf("teardown ran while minimized")
	}
}

func TestTimeoutIsFatal(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.sync.fences[0].waitErr = ErrTimeout

	err = h.engine.Draw()
	if errors.Cause(err) != ErrTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if h.rec.index("acquire:0", 0) >= 0 {
		t.Errorf("acquired after a failed slot wait")
	}
}

func TestAcquireFailureIsFatal(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	lost := errors.New("device lost")
	h.target.script = []acquireResult{{0, lost}}

	if err := h.engine.Draw(); errors.Cause(err) != lost {
		t.Fatalf("expected device lost, got %v", err)
	}
	if h.target.teardowns != 0 {
		t.Errorf("fatal acquire should not rebuild")
	}
}

func TestRunStopsOnClose(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}

	frames := 0
	err = h.engine.Run(func(s Stats) {
		frames++
		if s.Frames == 4 {
			h.window.closing = true
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if frames != 4 || h.window.polls != 4 {
		t.Errorf("expected 4 frames and polls, got %d and %d", frames, h.window.polls)
	}
}

func TestCloseWaitsIdleFirst(t *testing.T) {
	h, err := newHarness(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	drawN(t, h, 2)
	h.rec.events = nil

	if err := h.engine.Close(); err != nil {
		t.Fatal(err)
	}

	if h.rec.events[0] != "idle" {
		t.Errorf("expected idle first, got %v", h.rec.events)
	}
	for _, f := range h.sync.fences {
		if !f.destroyed {
			t.Errorf("fence %s not destroyed", f.name)
		}
	}
	if h.rec.count("teardown") != 1 {
		t.Errorf("expected one teardown, got %v", h.rec.events)
	}
}

func TestImageOwners(t *testing.T) {
	rec := &recorder{}
	f := &fakeFence{rec: rec, name: "F0"}

	owners := imageOwners{}
	owners.reset(3)
	if owners.owner(1) != nil {
		t.Fatal("fresh map has owner")
	}
	owners.claim(1, f)
	if owners.owner(1) != f {
		t.Fatal("claim not recorded")
	}
	if owners.owner(7) != nil {
		t.Fatal("out of range index has owner")
	}

	owners.reset(5)
	if len(owners) != 5 || owners.owner(1) != nil {
		t.Fatalf("reset did not clear and resize: %v", owners)
	}
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		err   error
		stale bool
	}{
		{nil, false},
		{ErrOutOfDate, true},
		{errors.Wrap(ErrSuboptimal, "present"), true},
		{ErrTimeout, false},
		{errors.New("other"), false},
	}
	for _, test := range tests {
		if IsStale(test.err) != test.stale {
			t.Errorf("IsStale(%v) = %t", test.err, !test.stale)
		}
	}
}
