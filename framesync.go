package framegraph

import (
	"fmt"
	"time"

	"github.com/gogpu/framegraph/device"
)

// defaultFrameTimeout bounds how long RenderFrame waits for the GPU to
// release a frame slot before reporting a device hang.
const defaultFrameTimeout = 5 * time.Second

// frameSync owns the frames-in-flight ring. Before frame K is submitted,
// the fence from frame K-depth must have fired: the CPU must never reuse a
// per-frame slot the GPU is still consuming. Unconditional submission is a
// correctness bug, not a performance nuance.
type frameSync struct {
	dev    device.Device
	depth  int
	fences []device.Fence
}

func newFrameSync(dev device.Device, depth int) *frameSync {
	return &frameSync{dev: dev, depth: depth, fences: make([]device.Fence, depth)}
}

// acquire claims the ring slot for frame. If the slot's previous submission
// has not completed, acquire blocks; with try set it returns ErrWouldBlock
// instead. The returned fence is rearmed and must be passed to Submit for
// this frame.
func (s *frameSync) acquire(frame uint64, try bool) (slot int, fence device.Fence, err error) {
	slot = int(frame % uint64(s.depth))

	f := s.fences[slot]
	if f == nil {
		// First use of this slot: nothing in flight yet.
		f, err = s.dev.CreateFence()
		if err != nil {
			return 0, nil, fmt.Errorf("framegraph: create frame fence: %w", err)
		}
		s.fences[slot] = f
		return slot, f, nil
	}

	if try {
		fired, err := f.Signaled()
		if err != nil {
			return 0, nil, fmt.Errorf("framegraph: poll frame fence: %w", err)
		}
		if !fired {
			return 0, nil, ErrWouldBlock
		}
	} else {
		fired, err := f.Wait(defaultFrameTimeout)
		if err != nil {
			return 0, nil, fmt.Errorf("framegraph: wait frame fence: %w", err)
		}
		if !fired {
			return 0, nil, fmt.Errorf("framegraph: frame %d fence timed out after %s", frame, defaultFrameTimeout)
		}
	}

	if err := f.Reset(); err != nil {
		return 0, nil, fmt.Errorf("framegraph: reset frame fence: %w", err)
	}
	return slot, f, nil
}

// destroy releases the ring fences after draining the device.
func (s *frameSync) destroy() {
	for i, f := range s.fences {
		if f != nil {
			s.dev.DestroyFence(f)
			s.fences[i] = nil
		}
	}
}
