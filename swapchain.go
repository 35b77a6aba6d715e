package main

import (
	"fmt"
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// swapChainSupportDetails describes a present surface. The type is suitable
// for passing around many details of the surface between functions.
type swapChainSupportDetails struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// chooseSwapSurfaceFormat prefers a B8G8R8A8 sRGB format with a sRGB
// non-linear colour space and falls back to the first reported format.
func chooseSwapSurfaceFormat(availableFormats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == vk.FormatB8g8r8a8Srgb &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// chooseSwapPresentMode prefers mailbox and falls back to FIFO. FIFO is
// required by the standard but a device which does not report it is still
// rejected here rather than trusted.
func chooseSwapPresentMode(available []vk.PresentMode) (vk.PresentMode, error) {
	fifoFound := false
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode, nil
		}
		if mode == vk.PresentModeFifo {
			fifoFound = true
		}
	}

	if fifoFound {
		return vk.PresentModeFifo, nil
	}

	return 0, &DeviceError{Message: "no supported present mode found"}
}

// chooseSwapExtend returns the extent to create the swap chain with. When
// the surface reports the special "window manager decides" value the
// last known framebuffer size is clamped into the supported range.
func chooseSwapExtend(
	capabilities vk.SurfaceCapabilities,
	lastWidth uint32,
	lastHeight uint32,
) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	actualExtend := vk.Extent2D{
		Width:  lastWidth,
		Height: lastHeight,
	}

	actualExtend.Width = clamp(
		actualExtend.Width,
		capabilities.MinImageExtent.Width,
		capabilities.MaxImageExtent.Width,
	)

	actualExtend.Height = clamp(
		actualExtend.Height,
		capabilities.MinImageExtent.Height,
		capabilities.MaxImageExtent.Height,
	)

	return actualExtend
}

// swapImageCount asks for one image more than the minimum so the program
// does not have to wait on the driver, clamped to the reported maximum. A
// zero maximum means no limit.
func swapImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	return imageCount
}

func (a *App) querySwapChainSupport(
	device vk.PhysicalDevice,
) swapChainSupportDetails {
	details := swapChainSupportDetails{}

	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(device, a.surface, &capabilities)
	if err := vk.Error(res); err != nil {
		panic(fmt.Sprintf("failed to query device surface capabilities: %s", err))
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	details.capabilities = capabilities

	var formatCount uint32
	res = vk.GetPhysicalDeviceSurfaceFormats(device, a.surface, &formatCount, nil)
	if err := vk.Error(res); err != nil {
		panic(fmt.Sprintf("failed to query device surface formats: %s", err))
	}

	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(device, a.surface, &formatCount, formats)
		for _, format := range formats {
			format.Deref()
			details.formats = append(details.formats, format)
		}
	}

	var presentModeCount uint32
	res = vk.GetPhysicalDeviceSurfacePresentModes(
		device, a.surface, &presentModeCount, nil,
	)
	if err := vk.Error(res); err != nil {
		panic(fmt.Sprintf("failed to query device surface present modes: %s", err))
	}

	if presentModeCount != 0 {
		presentModes := make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(
			device, a.surface, &presentModeCount, presentModes,
		)
		details.presentModes = presentModes
	}

	return details
}

func (a *App) createSurface() error {
	surfacePtr, err := a.window.CreateWindowSurface(a.instance, nil)
	if err != nil {
		return fmt.Errorf("cannot create surface within GLFW window: %w", err)
	}

	a.surface = vk.SurfaceFromPointer(surfacePtr)
	return nil
}

func (a *App) createSwapChain() error {
	swapChainSupport := a.querySwapChainSupport(a.physicalDevice)

	surfaceFormat := chooseSwapSurfaceFormat(swapChainSupport.formats)
	presentMode, err := chooseSwapPresentMode(swapChainSupport.presentModes)
	if err != nil {
		return err
	}
	extend := chooseSwapExtend(
		swapChainSupport.capabilities,
		a.lastWidth,
		a.lastHeight,
	)

	imageCount := swapImageCount(swapChainSupport.capabilities)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          a.surface,
		MinImageCount:    imageCount,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageFormat:      surfaceFormat.Format,
		ImageExtent:      extend,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     swapChainSupport.capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	indices := a.findQueueFamilies(a.physicalDevice)
	if indices.Graphics.Get() != indices.Present.Get() {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			indices.Graphics.Get(),
			indices.Present.Get(),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapChain vk.Swapchain
	res := vk.CreateSwapchain(a.device, &createInfo, nil, &swapChain)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to create swap chain: %w", err)
	}
	a.swapChain = swapChain

	var imagesCount uint32
	res = vk.GetSwapchainImages(a.device, a.swapChain, &imagesCount, nil)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to count swap chain images: %w", err)
	}

	images := make([]vk.Image, imagesCount)
	res = vk.GetSwapchainImages(a.device, a.swapChain, &imagesCount, images)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to get swap chain images: %w", err)
	}

	a.swapChainImages = images

	a.swapChainImageFormat = surfaceFormat.Format
	a.swapChainExtend = extend

	return nil
}

func (a *App) createSwapchainImageViews() error {
	for i, swapChainImage := range a.swapChainImages {
		swapChainImage := swapChainImage
		imageView, err := a.createImageView(
			swapChainImage,
			a.swapChainImageFormat,
		)
		if err != nil {
			return fmt.Errorf("failed to create image %d: %w", i, err)
		}

		a.swapChainImageViews = append(a.swapChainImageViews, imageView)
	}

	return nil
}

func (a *App) createFramebuffers() error {
	a.swapChainFramebuffers = make([]vk.Framebuffer, len(a.swapChainImageViews))

	for i, swapChainView := range a.swapChainImageViews {
		swapChainView := swapChainView

		attachments := []vk.ImageView{
			swapChainView,
		}

		frameBufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      a.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           a.swapChainExtend.Width,
			Height:          a.swapChainExtend.Height,
			Layers:          1,
		}

		var frameBuffer vk.Framebuffer
		res := vk.CreateFramebuffer(a.device, &frameBufferInfo, nil, &frameBuffer)
		if err := vk.Error(res); err != nil {
			return fmt.Errorf("failed to create frame buffer %d: %w", i, err)
		}

		a.swapChainFramebuffers[i] = frameBuffer
	}

	return checkSwapchainCounts(
		len(a.swapChainImages),
		len(a.swapChainImageViews),
		len(a.swapChainFramebuffers),
	)
}

// checkSwapchainCounts verifies that the per-image resources line up one
// to one with the swap chain images. Framebuffer creation is the last
// step of every (re)build so the check runs there.
func checkSwapchainCounts(images, views, framebuffers int) error {
	if views != images || framebuffers != images {
		return &DeviceError{Message: fmt.Sprintf(
			"swap chain resource mismatch: %d images, %d views, %d framebuffers",
			images, views, framebuffers,
		)}
	}

	return nil
}

func (a *App) cleanupSwapChain() {
	for _, frameBuffer := range a.swapChainFramebuffers {
		vk.DestroyFramebuffer(a.device, frameBuffer, nil)
	}
	a.swapChainFramebuffers = nil

	for _, imageView := range a.swapChainImageViews {
		vk.DestroyImageView(a.device, imageView, nil)
	}

	if a.swapChain != vk.NullSwapchain {
		vk.DestroySwapchain(a.device, a.swapChain, nil)
		a.swapChain = vk.NullSwapchain
	}
	a.swapChainImages = nil
	a.swapChainImageViews = nil
}

// recreateSwapchain rebuilds the swap chain and everything which depends on
// its images after the current one became unusable. A zero sized
// framebuffer means the window is minimised, in which case the program
// blocks until it is restored.
func (a *App) recreateSwapchain() error {
	for {
		width, height := a.window.GetFramebufferSize()
		if width != 0 || height != 0 {
			a.NotifyResize(uint32(width), uint32(height))
			break
		}

		glfw.WaitEvents()
	}

	vk.DeviceWaitIdle(a.device)

	a.cleanupSwapChain()

	if err := a.createSwapChain(); err != nil {
		return fmt.Errorf("createSwapChain: %w", err)
	}
	if err := a.createSwapchainImageViews(); err != nil {
		return fmt.Errorf("createSwapchainImageViews: %w", err)
	}
	if err := a.createFramebuffers(); err != nil {
		return fmt.Errorf("createFramebuffers: %w", err)
	}

	return nil
}

// NotifyResize records the new framebuffer size. The size is used the next
// time the swap chain extent has to be decided by the program.
func (a *App) NotifyResize(width, height uint32) {
	a.lastWidth = width
	a.lastHeight = height
}
