package frame

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/perlw/vkmodel/logger"
)

type recorder struct {
	events []string
}

func (r *recorder) add(format string, a ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, a...))
}

func (r *recorder) index(event string, from int) int {
	for t := from; t < len(r.events); t++ {
		if r.events[t] == event {
			return t
		}
	}
	return -1
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeFence struct {
	rec  *recorder
	name string

	// pending is set while submitted work has not been waited on.
	pending   bool
	signaled  bool
	destroyed bool
	waitErr   error
}

func (f *fakeFence) Wait(timeout uint64) error {
	f.rec.add("wait:%s", f.name)
	if f.waitErr != nil {
		return f.waitErr
	}
	f.pending = false
	f.signaled = true
	return nil
}

func (f *fakeFence) Reset() error {
	f.rec.add("reset:%s", f.name)
	f.signaled = false
	return nil
}

func (f *fakeFence) Destroy() {
	f.rec.add("destroy:%s", f.name)
	f.destroyed = true
}

type fakeSemaphore struct {
	rec  *recorder
	name string
}

func (s *fakeSemaphore) Destroy() {
	s.rec.add("destroy:%s", s.name)
}

type fakeSync struct {
	rec       *recorder
	fences    []*fakeFence
	semaphore int
}

func (s *fakeSync) NewSemaphore() (Semaphore, error) {
	sem := &fakeSemaphore{rec: s.rec, name: fmt.Sprintf("S%d", s.semaphore)}
	s.semaphore++
	return sem, nil
}

func (s *fakeSync) NewFence(signaled bool) (Fence, error) {
	f := &fakeFence{rec: s.rec, name: fmt.Sprintf("F%d", len(s.fences)), signaled: signaled}
	s.fences = append(s.fences, f)
	return f, nil
}

type acquireResult struct {
	image uint32
	err   error
}

type fakeSwapchain struct {
	rec    *recorder
	images int
	next   uint32

	// script overrides round robin acquisition while it has entries.
	script  *[]acquireResult
	present *[]error
}

func (s *fakeSwapchain) ImageCount() int {
	return s.images
}

func (s *fakeSwapchain) Acquire(timeout uint64, signal Semaphore) (uint32, error) {
	if s.script != nil && len(*s.script) > 0 {
		r := (*s.script)[0]
		*s.script = (*s.script)[1:]
		s.rec.add("acquire:%d", r.image)
		return r.image, r.err
	}
	image := s.next
	s.next = (s.next + 1) % uint32(s.images)
	s.rec.add("acquire:%d", image)
	return image, nil
}

func (s *fakeSwapchain) Present(image uint32, wait Semaphore) error {
	s.rec.add("present:%d", image)
	if s.present != nil && len(*s.present) > 0 {
		err := (*s.present)[0]
		*s.present = (*s.present)[1:]
		return err
	}
	return nil
}

type fakeTarget struct {
	rec *recorder

	// counts lists the image count for each successive build; the last
	// entry repeats.
	counts []int
	script []acquireResult
	present []error

	builds    int
	teardowns int
	sizes     [][2]int

	framebuffers   int
	commandBuffers int
	descriptorSets int

	owners    map[uint32]*fakeFence
	conflicts int
}

func (t *fakeTarget) Build(width, height int) (Swapchain, error) {
	count := t.counts[len(t.counts)-1]
	if t.builds < len(t.counts) {
		count = t.counts[t.builds]
	}
	t.builds++
	t.sizes = append(t.sizes, [2]int{width, height})
	t.rec.add("build:%d", count)

	t.framebuffers += count
	t.commandBuffers += count
	t.descriptorSets += count
	t.owners = map[uint32]*fakeFence{}

	return &fakeSwapchain{
		rec:     t.rec,
		images:  count,
		script:  &t.script,
		present: &t.present,
	}, nil
}

func (t *fakeTarget) Teardown() {
	t.teardowns++
	t.rec.add("teardown")
	t.framebuffers = 0
	t.commandBuffers = 0
	t.descriptorSets = 0
}

func (t *fakeTarget) Update(image uint32) error {
	t.rec.add("update:%d", image)
	if prev := t.owners[image]; prev != nil && prev.pending {
		t.conflicts++
	}
	return nil
}

func (t *fakeTarget) Submit(image uint32, wait, signal Semaphore, done Fence) error {
	fence := done.(*fakeFence)
	t.rec.add("submit:%d:%s", image, fence.name)
	if prev := t.owners[image]; prev != nil && prev.pending {
		t.conflicts++
	}
	fence.pending = true
	t.owners[image] = fence
	return nil
}

type fakeDevice struct {
	rec *recorder
	err error
}

func (d *fakeDevice) WaitIdle() error {
	d.rec.add("idle")
	return d.err
}

type fakeWindow struct {
	rec *recorder

	// sizes is consumed one entry per FramebufferSize call; the last entry
	// repeats.
	sizes   [][2]int
	resized bool
	closing bool

	waits int
	polls int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	s := w.sizes[0]
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
	return s[0], s[1]
}

func (w *fakeWindow) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	w.rec.add("waitevents")
}

func (w *fakeWindow) PollEvents() {
	w.polls++
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closing
}

type harness struct {
	rec    *recorder
	sync   *fakeSync
	target *fakeTarget
	device *fakeDevice
	window *fakeWindow
	engine *Engine
}

func newHarness(frames int, counts ...int) (*harness, error) {
	rec := &recorder{}
	h := harness{
		rec:    rec,
		sync:   &fakeSync{rec: rec},
		target: &fakeTarget{rec: rec, counts: counts},
		device: &fakeDevice{rec: rec},
		window: &fakeWindow{rec: rec, sizes: [][2]int{{800, 600}}},
	}

	cfg := DefaultConfig()
	cfg.FramesInFlight = frames
	var err error
	h.engine, err = New(cfg, logger.NewTo("TEST", ioutil.Discard, ioutil.Discard), h.device, h.window, h.sync, h.target)
	if err != nil {
		return nil, errors.Wrap(err, "new engine")
	}
	h.rec.events = nil
	return &h, nil
}
