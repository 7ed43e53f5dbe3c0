package frame

import (
	"math"

	"github.com/pkg/errors"

	"github.com/perlw/vkmodel/logger"
)

const DefaultFramesInFlight = 2

// NoTimeout makes fence and acquire waits block until they complete.
const NoTimeout uint64 = math.MaxUint64

type Config struct {
	FramesInFlight int
	// FenceTimeout is in nanoseconds. Expiry is fatal.
	FenceTimeout uint64
}

func DefaultConfig() Config {
	return Config{
		FramesInFlight: DefaultFramesInFlight,
		FenceTimeout:   NoTimeout,
	}
}

type Stats struct {
	Frames   uint64
	Rebuilds uint64
	Slot     int
	Images   int
	Width    int
	Height   int
}

// Engine drives acquire, submit and present for a fixed number of frame
// slots and rebuilds the target whenever the surface goes stale.
type Engine struct {
	log logger.Logger
	cfg Config

	device Device
	window Window
	target Target

	swapchain Swapchain
	slots     []Slot
	current   int
	owners    imageOwners

	stale  bool
	width  int
	height int

	frames   uint64
	rebuilds uint64
}

// New creates the frame slots and builds the target for the current
// drawable size.
func New(cfg Config, log logger.Logger, device Device, window Window, sync SyncFactory, target Target) (*Engine, error) {
	if cfg.FramesInFlight < 1 {
		return nil, errors.Errorf("frames in flight must be at least 1, got %d", cfg.FramesInFlight)
	}
	if cfg.FenceTimeout == 0 {
		cfg.FenceTimeout = NoTimeout
	}

	e := Engine{
		log:    log,
		cfg:    cfg,
		device: device,
		window: window,
		target: target,
	}

	e.slots = make([]Slot, 0, cfg.FramesInFlight)
	for t := 0; t < cfg.FramesInFlight; t++ {
		slot, err := newSlot(sync)
		if err != nil {
			e.destroySlots()
			return nil, errors.Wrapf(err, "create frame slot %d", t)
		}
		e.slots = append(e.slots, slot)
	}

	width, height, err := e.waitForArea()
	if err != nil {
		e.destroySlots()
		return nil, err
	}
	if err := e.build(width, height); err != nil {
		e.destroySlots()
		return nil, err
	}
	e.log.Log("frame engine ready; %d slots, %d images, %dx%d", len(e.slots), len(e.owners), width, height)

	return &e, nil
}

// Draw renders and presents one frame.
func (e *Engine) Draw() error {
	defer e.advance()

	slot := &e.slots[e.current]
	if err := slot.InFlight.Wait(e.cfg.FenceTimeout); err != nil {
		return errors.Wrapf(err, "wait for frame slot %d", e.current)
	}
	slot.State = SlotIdle

	image, err := e.swapchain.Acquire(e.cfg.FenceTimeout, slot.ImageAvailable)
	switch errors.Cause(err) {
	case nil, ErrSuboptimal:
	case ErrOutOfDate:
		e.log.Trace("acquire out of date on slot %d", e.current)
		return e.Rebuild()
	default:
		return errors.Wrap(err, "acquire image")
	}
	if int(image) >= len(e.owners) {
		return errors.Errorf("acquired image %d outside chain of %d", image, len(e.owners))
	}

	if owner := e.owners.owner(image); owner != nil {
		if err := owner.Wait(e.cfg.FenceTimeout); err != nil {
			return errors.Wrapf(err, "wait for image %d", image)
		}
	}
	e.owners.claim(image, slot.InFlight)
	if err := slot.InFlight.Reset(); err != nil {
		return errors.Wrapf(err, "reset frame slot %d", e.current)
	}

	if err := e.target.Update(image); err != nil {
		return errors.Wrapf(err, "update image %d", image)
	}
	if err := e.target.Submit(image, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return errors.Wrapf(err, "submit image %d", image)
	}
	slot.State = SlotBusy

	err = e.swapchain.Present(image, slot.RenderFinished)
	e.frames++
	if IsStale(err) {
		e.stale = true
	} else if err != nil {
		return errors.Wrapf(err, "present image %d", image)
	}
	if e.window.Resized() {
		e.stale = true
	}

	if e.stale {
		return e.Rebuild()
	}
	return nil
}

// Invalidate marks the chain stale. Any number of calls before the next
// Draw produce a single rebuild.
func (e *Engine) Invalidate() {
	e.stale = true
}

// Rebuild recreates every chain dependent resource. Frame slots are kept.
func (e *Engine) Rebuild() error {
	// The new chain is sized from the current area, so a pending resize
	// is already covered.
	e.window.Resized()

	width, height, err := e.waitForArea()
	if err != nil {
		return err
	}

	if err := e.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait idle before rebuild")
	}

	oldImages := len(e.owners)
	e.target.Teardown()
	e.swapchain = nil

	if err := e.build(width, height); err != nil {
		return errors.Wrap(err, "rebuild")
	}
	e.rebuilds++
	e.log.Log("rebuilt chain; %d -> %d images, %dx%d", oldImages, len(e.owners), width, height)

	return nil
}

// Run draws until the window asks to close. after, when set, is called
// with fresh stats after every frame.
func (e *Engine) Run(after func(Stats)) error {
	for !e.window.ShouldClose() {
		e.window.PollEvents()
		if err := e.Draw(); err != nil {
			if errors.Cause(err) == ErrClosed {
				return nil
			}
			return err
		}
		if after != nil {
			after(e.Stats())
		}
	}
	return nil
}

// Close waits for the device to go idle, then releases the target and
// the frame slots.
func (e *Engine) Close() error {
	err := e.device.WaitIdle()
	if e.swapchain != nil {
		e.target.Teardown()
		e.swapchain = nil
	}
	e.destroySlots()
	e.owners = nil
	return errors.Wrap(err, "wait idle before close")
}

func (e *Engine) Stats() Stats {
	return Stats{
		Frames:   e.frames,
		Rebuilds: e.rebuilds,
		Slot:     e.current,
		Images:   len(e.owners),
		Width:    e.width,
		Height:   e.height,
	}
}

// Slot returns the index of the slot the next Draw will use.
func (e *Engine) Slot() int {
	return e.current
}

func (e *Engine) advance() {
	e.current = (e.current + 1) % len(e.slots)
}

func (e *Engine) build(width, height int) error {
	swapchain, err := e.target.Build(width, height)
	if err != nil {
		return errors.Wrap(err, "build target")
	}
	e.swapchain = swapchain
	e.owners.reset(swapchain.ImageCount())
	e.width, e.height = width, height
	e.stale = false
	return nil
}

// waitForArea blocks on window events while the drawable area is zero.
func (e *Engine) waitForArea() (int, int, error) {
	width, height := e.window.FramebufferSize()
	for width == 0 || height == 0 {
		if e.window.ShouldClose() {
			return 0, 0, ErrClosed
		}
		e.window.WaitEvents()
		width, height = e.window.FramebufferSize()
	}
	return width, height, nil
}

func (e *Engine) destroySlots() {
	for t := range e.slots {
		e.slots[t].destroy()
	}
	e.slots = nil
}
