package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/onsi/gomega"
)

// fakeBackend records the calls made by the frame driver so the tests can
// check ordering and synchronisation decisions without a GPU.
type fakeBackend struct {
	calls []string

	acquireOutOfDate  bool
	acquireSuboptimal bool
	acquireErr        error

	presentOutOfDate  bool
	presentSuboptimal bool
	presentErr        error

	recordErr   error
	submitErr   error
	recreateErr error

	resizeFlag bool

	imageIndex  uint32
	recreations int
	fenceResets int
}

func (f *fakeBackend) record(format string, a ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, a...))
}

func (f *fakeBackend) waitForFence(slot uint32) { f.record("waitForFence(%d)", slot) }

func (f *fakeBackend) resetFence(slot uint32) {
	f.fenceResets++
	f.record("resetFence(%d)", slot)
}

func (f *fakeBackend) acquireNextImage(slot uint32) (uint32, bool, bool, error) {
	f.record("acquireNextImage(%d)", slot)
	if f.acquireOutOfDate {
		f.acquireOutOfDate = false
		return 0, true, false, nil
	}
	return f.imageIndex, false, f.acquireSuboptimal, f.acquireErr
}

func (f *fakeBackend) updateUniforms(slot uint32) { f.record("updateUniforms(%d)", slot) }
func (f *fakeBackend) resetCommands(slot uint32)  { f.record("resetCommands(%d)", slot) }

func (f *fakeBackend) recordCommands(slot uint32, imageIndex uint32) error {
	f.record("recordCommands(%d,%d)", slot, imageIndex)
	return f.recordErr
}

func (f *fakeBackend) submit(slot uint32) error {
	f.record("submit(%d)", slot)
	return f.submitErr
}

func (f *fakeBackend) present(slot uint32, imageIndex uint32) (bool, bool, error) {
	f.record("present(%d,%d)", slot, imageIndex)
	return f.presentOutOfDate, f.presentSuboptimal, f.presentErr
}

func (f *fakeBackend) recreateSwapchain() error {
	f.recreations++
	f.record("recreateSwapchain()")
	return f.recreateErr
}

func (f *fakeBackend) resizePending() bool { return f.resizeFlag }

func (f *fakeBackend) clearResizePending() {
	f.resizeFlag = false
	f.record("clearResizePending()")
}

func TestDrawFrameHappyPathOrder(t *testing.T) {
	g := gomega.NewWithT(t)

	backend := &fakeBackend{imageIndex: 1}
	driver := frameDriver{backend: backend}

	g.Expect(driver.drawFrame()).To(gomega.Succeed())

	g.Expect(backend.calls).To(gomega.Equal([]string{
		"waitForFence(0)",
		"acquireNextImage(0)",
		"updateUniforms(0)",
		"resetFence(0)",
		"resetCommands(0)",
		"recordCommands(0,1)",
		"submit(0)",
		"present(0,1)",
	}))
	g.Expect(backend.recreations).To(gomega.Equal(0))
}

func TestDrawFrameCyclesThroughSlots(t *testing.T) {
	g := gomega.NewWithT(t)

	backend := &fakeBackend{}
	driver := frameDriver{backend: backend}

	slots := []uint32{}
	for i := 0; i < 5; i++ {
		slots = append(slots, driver.currentFrame)
		g.Expect(driver.drawFrame()).To(gomega.Succeed())
	}

	g.Expect(slots).To(gomega.Equal([]uint32{0, 1, 0, 1, 0}))
}

func TestDrawFrameOutOfDateAcquire(t *testing.T) {
	g := gomega.NewWithT(t)

	backend := &fakeBackend{acquireOutOfDate: true}
	driver := frameDriver{backend: backend}

	g.Expect(driver.drawFrame()).To(gomega.Succeed())

	// The swap chain is rebuilt exactly once and nothing is submitted. The
	// fence is left signalled and the same slot is used again.
	g.Expect(backend.recreations).To(gomega.Equal(1))
	g.Expect(backend.fenceResets).To(gomega.Equal(0))
	g.Expect(backend.calls).To(gomega.Equal([]string{
		"waitForFence(0)",
		"acquireNextImage(0)",
		"recreateSwapchain()",
	}))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(0)))

	// The next frame proceeds normally from the same slot.
	g.Expect(driver.drawFrame()).To(gomega.Succeed())
	g.Expect(backend.recreations).To(gomega.Equal(1))
	g.Expect(backend.fenceResets).To(gomega.Equal(1))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(1)))
}

func TestDrawFrameSuboptimalAcquireRecreatesAfterPresent(t *testing.T) {
	g := gomega.NewWithT(t)

	backend := &fakeBackend{acquireSuboptimal: true}
	driver := frameDriver{backend: backend}

	g.Expect(driver.drawFrame()).To(gomega.Succeed())

	// The frame is still fully rendered and presented before the rebuild.
	g.Expect(backend.calls).To(gomega.ContainElement("submit(0)"))
	g.Expect(backend.calls).To(gomega.ContainElement("present(0,0)"))
	g.Expect(backend.recreations).To(gomega.Equal(1))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(1)))
}

func TestDrawFrameOutOfDatePresent(t *testing.T) {
	g := gomega.NewWithT(t)

	backend := &fakeBackend{presentOutOfDate: true}
	driver := frameDriver{backend: backend}

	g.Expect(driver.drawFrame()).To(gomega.Succeed())

	g.Expect(backend.recreations).To(gomega.Equal(1))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(1)))
}

func TestDrawFrameResizeFlagForcesRecreation(t *testing.T) {
	g := gomega.NewWithT(t)

	backend := &fakeBackend{resizeFlag: true}
	driver := frameDriver{backend: backend}

	g.Expect(driver.drawFrame()).To(gomega.Succeed())

	g.Expect(backend.recreations).To(gomega.Equal(1))
	g.Expect(backend.resizeFlag).To(gomega.BeFalse())
	g.Expect(backend.calls).To(gomega.ContainElement("clearResizePending()"))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(1)))

	// Without the flag the next frame does not rebuild again.
	g.Expect(driver.drawFrame()).To(gomega.Succeed())
	g.Expect(backend.recreations).To(gomega.Equal(1))
}

func TestDrawFrameAcquireErrorIsFatal(t *testing.T) {
	g := gomega.NewWithT(t)

	acquireErr := errors.New("device lost")
	backend := &fakeBackend{acquireErr: acquireErr}
	driver := frameDriver{backend: backend}

	err := driver.drawFrame()
	g.Expect(err).To(gomega.MatchError(acquireErr))

	g.Expect(backend.fenceResets).To(gomega.Equal(0))
	g.Expect(backend.calls).NotTo(gomega.ContainElement("submit(0)"))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(0)))
}

func TestDrawFrameRecordErrorIsFatal(t *testing.T) {
	g := gomega.NewWithT(t)

	recordErr := errors.New("begin command buffer failed")
	backend := &fakeBackend{recordErr: recordErr}
	driver := frameDriver{backend: backend}

	err := driver.drawFrame()
	g.Expect(err).To(gomega.MatchError(recordErr))
	g.Expect(backend.calls).NotTo(gomega.ContainElement("submit(0)"))
}

func TestDrawFrameSubmitErrorIsFatal(t *testing.T) {
	g := gomega.NewWithT(t)

	submitErr := errors.New("queue submit failed")
	backend := &fakeBackend{submitErr: submitErr}
	driver := frameDriver{backend: backend}

	err := driver.drawFrame()
	g.Expect(err).To(gomega.MatchError(submitErr))

	g.Expect(backend.calls).NotTo(gomega.ContainElement("present(0,0)"))
	g.Expect(driver.currentFrame).To(gomega.Equal(uint32(0)))
}

func TestDrawFramePresentErrorIsFatalEvenWhenRecreationIsDue(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeBackend)
	}{
		{
			name:  "suboptimal acquire",
			setup: func(f *fakeBackend) { f.acquireSuboptimal = true },
		},
		{
			name:  "resize pending",
			setup: func(f *fakeBackend) { f.resizeFlag = true },
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			g := gomega.NewWithT(t)

			presentErr := errors.New("present failed")
			backend := &fakeBackend{presentErr: presentErr}
			test.setup(backend)
			driver := frameDriver{backend: backend}

			err := driver.drawFrame()
			g.Expect(err).To(gomega.MatchError(presentErr))

			// The pending rebuild never masks the fatal error.
			g.Expect(backend.recreations).To(gomega.Equal(0))
			g.Expect(driver.currentFrame).To(gomega.Equal(uint32(0)))
		})
	}
}

func TestDrawFramePresentErrorIsFatal(t *testing.T) {
	g := gomega.NewWithT(t)

	presentErr := errors.New("present failed")
	backend := &fakeBackend{presentErr: presentErr}
	driver := frameDriver{backend: backend}

	err := driver.drawFrame()
	g.Expect(err).To(gomega.MatchError(presentErr))
	g.Expect(backend.recreations).To(gomega.Equal(0))
}

func TestDrawFrameRecreationErrorPropagates(t *testing.T) {
	g := gomega.NewWithT(t)

	recreateErr := errors.New("createSwapChain: no supported present mode found")
	backend := &fakeBackend{acquireOutOfDate: true, recreateErr: recreateErr}
	driver := frameDriver{backend: backend}

	err := driver.drawFrame()
	g.Expect(err).To(gomega.MatchError(recreateErr))
}
