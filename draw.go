package main

import (
	"fmt"
	"math"
	"time"

	"github.com/lukeparsons/vkproject/unsafer"

	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// frameBackend is everything the per-frame loop needs from the rest of the
// renderer. App is the production implementation.
type frameBackend interface {
	waitForFence(slot uint32)
	resetFence(slot uint32)

	// acquireNextImage returns the swap chain image index to render into.
	// outOfDate means the swap chain can no longer be used at all while
	// suboptimal means the image is usable but the chain should be rebuilt
	// after presenting.
	acquireNextImage(slot uint32) (imageIndex uint32, outOfDate, suboptimal bool, err error)

	updateUniforms(slot uint32)
	resetCommands(slot uint32)
	recordCommands(slot uint32, imageIndex uint32) error
	submit(slot uint32) error
	present(slot uint32, imageIndex uint32) (outOfDate, suboptimal bool, err error)

	recreateSwapchain() error
	resizePending() bool
	clearResizePending()
}

// frameDriver runs the per-frame synchronisation state machine over a fixed
// number of frame slots.
type frameDriver struct {
	backend frameBackend

	currentFrame uint32
}

// drawFrame renders and presents a single frame using the resources of the
// current slot.
func (d *frameDriver) drawFrame() error {
	slot := d.currentFrame

	d.backend.waitForFence(slot)

	imageIndex, outOfDate, suboptimal, err := d.backend.acquireNextImage(slot)
	if outOfDate {
		// The fence stays signalled and the slot is reused for the next
		// frame, otherwise the loop would deadlock waiting on a fence
		// which no submitted work can ever signal.
		if err := d.backend.recreateSwapchain(); err != nil {
			return fmt.Errorf("recreateSwapchain: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to acquire swap chain image: %w", err)
	}

	d.backend.updateUniforms(slot)

	// Only reset the fence once it is known work will be submitted with it.
	d.backend.resetFence(slot)
	d.backend.resetCommands(slot)

	if err := d.backend.recordCommands(slot, imageIndex); err != nil {
		return fmt.Errorf("recording command buffer: %w", err)
	}

	if err := d.backend.submit(slot); err != nil {
		return fmt.Errorf("queue submit error: %w", err)
	}

	presentOutOfDate, presentSuboptimal, presentErr := d.backend.present(slot, imageIndex)
	if presentErr != nil {
		// A real present error is never reported together with the
		// staleness flags, so it always aborts the loop.
		return fmt.Errorf("failed to present swap chain image: %w", presentErr)
	}

	if presentOutOfDate || presentSuboptimal || suboptimal || d.backend.resizePending() {
		d.backend.clearResizePending()
		if err := d.backend.recreateSwapchain(); err != nil {
			return fmt.Errorf("recreateSwapchain: %w", err)
		}
	}

	d.currentFrame = (d.currentFrame + 1) % maxFramesInFlight
	return nil
}

func (a *App) waitForFence(slot uint32) {
	fences := []vk.Fence{a.inFlightFences[slot]}
	vk.WaitForFences(a.device, 1, fences, vk.True, math.MaxUint64)
}

func (a *App) resetFence(slot uint32) {
	fences := []vk.Fence{a.inFlightFences[slot]}
	vk.ResetFences(a.device, 1, fences)
}

func (a *App) acquireNextImage(slot uint32) (uint32, bool, bool, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(
		a.device,
		a.swapChain,
		math.MaxUint64,
		a.imageAvailableSems[slot],
		vk.Fence(vk.NullHandle),
		&imageIndex,
	)

	switch res {
	case vk.ErrorOutOfDate:
		return 0, true, false, nil
	case vk.Suboptimal:
		return imageIndex, false, true, nil
	case vk.Success:
		return imageIndex, false, false, nil
	}

	return 0, false, false, vk.Error(res)
}

func (a *App) resetCommands(slot uint32) {
	vk.ResetCommandBuffer(a.commandBuffers[slot], 0)
}

func (a *App) recordCommands(slot uint32, imageIndex uint32) error {
	return a.recordCommandBuffer(a.commandBuffers[slot], slot, imageIndex)
}

func (a *App) submit(slot uint32) error {
	signalSemaphores := []vk.Semaphore{
		a.renderFinishedSems[slot],
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{a.imageAvailableSems[slot]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{a.commandBuffers[slot]},
		PSignalSemaphores:    signalSemaphores,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
	}

	res := vk.QueueSubmit(
		a.graphicsQueue,
		1,
		[]vk.SubmitInfo{submitInfo},
		a.inFlightFences[slot],
	)

	return vk.Error(res)
}

func (a *App) present(slot uint32, imageIndex uint32) (bool, bool, error) {
	waitSemaphores := []vk.Semaphore{
		a.renderFinishedSems[slot],
	}

	swapChains := []vk.Swapchain{
		a.swapChain,
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     uint32(len(swapChains)),
		PSwapchains:        swapChains,
		PImageIndices:      []uint32{imageIndex},
	}

	res := vk.QueuePresent(a.presentQueue, &presentInfo)
	switch res {
	case vk.ErrorOutOfDate:
		return true, false, nil
	case vk.Suboptimal:
		return false, true, nil
	case vk.Success:
		return false, false, nil
	}

	return false, false, vk.Error(res)
}

func (a *App) resizePending() bool {
	return a.frameBufferResized
}

func (a *App) clearResizePending() {
	a.frameBufferResized = false
}

// updateUniforms writes the uniform block of the given frame slot through
// its persistent mapping.
func (a *App) updateUniforms(slot uint32) {
	frameTime := time.Since(a.startTime)
	ubo := UniformBufferObject{}

	ubo.model.Identity()
	ubo.model.RotateZ(&ubo.model, float32(frameTime.Seconds()))

	var view linmath.Mat4x4
	view.LookAt(
		&linmath.Vec3{2, 2, 2},
		&linmath.Vec3{0, 0, 0},
		&linmath.Vec3{0, 0, 1},
	)

	aspectR := float32(a.swapChainExtend.Width) / float32(a.swapChainExtend.Height)

	var persp linmath.Mat4x4
	persp.Perspective(45, aspectR, 0.1, 10)
	persp[1][1] *= -1

	ubo.proj.Mult(&persp, &view)

	vk.Memcopy(a.uniformBuffersMapped[slot], unsafer.StructToBytes(&ubo))
}

func (a *App) createCommandBuffers() error {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        a.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: maxFramesInFlight,
	}

	commandBuffers := make([]vk.CommandBuffer, maxFramesInFlight)
	res := vk.AllocateCommandBuffers(a.device, &allocInfo, commandBuffers)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to allocate command buffer: %w", err)
	}
	a.commandBuffers = commandBuffers

	return nil
}

func (a *App) recordCommandBuffer(
	commandBuffer vk.CommandBuffer,
	slot uint32,
	imageIndex uint32,
) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	res := vk.BeginCommandBuffer(commandBuffer, &beginInfo)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("cannot add begin command to the buffer: %w", err)
	}

	var clearValues [1]vk.ClearValue
	clearValues[0].SetColor([]float32{0, 0, 0, 1})

	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  a.renderPass,
		Framebuffer: a.swapChainFramebuffers[imageIndex],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: 0,
				Y: 0,
			},
			Extent: a.swapChainExtend,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues[:],
	}

	vk.CmdBeginRenderPass(commandBuffer, &renderPassInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, a.graphicsPipeline)

	vertexBuffers := []vk.Buffer{a.vertexBuffer.buffer}
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(commandBuffer, 0, 1, vertexBuffers, offsets)

	vk.CmdBindIndexBuffer(commandBuffer, a.indexBuffer.buffer, 0, vk.IndexTypeUint16)

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(a.swapChainExtend.Width),
		Height:   float32(a.swapChainExtend.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: a.swapChainExtend,
	}
	vk.CmdSetScissor(commandBuffer, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindDescriptorSets(
		commandBuffer,
		vk.PipelineBindPointGraphics,
		a.pipelineLayout,
		0,
		1,
		[]vk.DescriptorSet{a.descriptorSets[slot]},
		0,
		nil,
	)

	vk.CmdDrawIndexed(commandBuffer, uint32(len(a.indices)), 1, 0, 0, 0)
	vk.CmdEndRenderPass(commandBuffer)

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("recording commands to buffer failed: %w", err)
	}
	return nil
}

func (a *App) createSyncObjects() error {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	// Fences start out signalled so the very first frame does not wait
	// forever.
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for i := 0; i < maxFramesInFlight; i++ {
		var imageAvailableSem vk.Semaphore
		if err := vk.Error(
			vk.CreateSemaphore(a.device, &semaphoreInfo, nil, &imageAvailableSem),
		); err != nil {
			return fmt.Errorf("failed to create imageAvailableSem: %w", err)
		}
		a.imageAvailableSems = append(a.imageAvailableSems, imageAvailableSem)

		var renderFinishedSem vk.Semaphore
		if err := vk.Error(
			vk.CreateSemaphore(a.device, &semaphoreInfo, nil, &renderFinishedSem),
		); err != nil {
			return fmt.Errorf("failed to create renderFinishedSem: %w", err)
		}
		a.renderFinishedSems = append(a.renderFinishedSems, renderFinishedSem)

		var fence vk.Fence
		if err := vk.Error(
			vk.CreateFence(a.device, &fenceInfo, nil, &fence),
		); err != nil {
			return fmt.Errorf("failed to create inFlightFence: %w", err)
		}
		a.inFlightFences = append(a.inFlightFences, fence)
	}

	return nil
}
