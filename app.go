package main

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// App owns the window and every Vulkan resource of the renderer. Resources
// are created in dependency order by initVulkan and destroyed in reverse
// order by cleanupVulkan.
type App struct {
	width  int
	height int

	texturePath    string
	vertShaderPath string
	fragShaderPath string

	// validationLayers is the list of required instance layers. The
	// program refuses to start without them.
	validationLayers []string

	// instanceExtensions is the list of required instance extensions,
	// filled in once GLFW reports what it needs for the surface.
	instanceExtensions []string

	// deviceExtensions is the list of required device extensions.
	deviceExtensions []string

	window   *glfw.Window
	instance vk.Instance

	debugCallback vk.DebugReportCallback

	// physicalDevice is the physical device selected for this program.
	physicalDevice vk.PhysicalDevice
	deviceName     string

	// device is the logical device created for interfacing with the
	// physical device.
	device vk.Device

	startTime time.Time

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	surface vk.Surface

	swapChain            vk.Swapchain
	swapChainImages      []vk.Image
	swapChainImageViews  []vk.ImageView
	swapChainImageFormat vk.Format
	swapChainExtend      vk.Extent2D

	swapChainFramebuffers []vk.Framebuffer

	renderPass          vk.RenderPass
	descriptorSetLayout vk.DescriptorSetLayout
	pipelineLayout      vk.PipelineLayout

	graphicsPipeline vk.Pipeline

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	imageAvailableSems []vk.Semaphore
	renderFinishedSems []vk.Semaphore
	inFlightFences     []vk.Fence

	frameBufferResized bool

	// lastWidth and lastHeight are the framebuffer size as last reported
	// by the window, used when the surface lets the program pick the swap
	// chain extent.
	lastWidth  uint32
	lastHeight uint32

	driver frameDriver

	vertices     []Vertex
	vertexBuffer gpuBuffer

	indices     []uint16
	indexBuffer gpuBuffer

	uniformBuffers       []gpuBuffer
	uniformBuffersMapped []unsafe.Pointer

	descriptorPool vk.DescriptorPool
	descriptorSets []vk.DescriptorSet

	textureImage     gpuImage
	textureImageView vk.ImageView
	textureSampler   vk.Sampler
}

// Run runs the renderer until the window is closed or an error occurs.
func (a *App) Run() error {
	if err := a.initWindow(); err != nil {
		return fmt.Errorf("initWindow: %w", err)
	}
	defer a.cleanWindow()

	if err := a.initVulkan(); err != nil {
		return fmt.Errorf("initVulkan: %w", err)
	}
	defer a.cleanupVulkan()

	if err := a.mainLoop(); err != nil {
		return fmt.Errorf("mainLoop: %w", err)
	}

	return nil
}

func (a *App) initWindow() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw.Init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(a.width, a.height, title, nil, nil)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}

	window.SetFramebufferSizeCallback(a.frameBufferResizeCallback)

	a.window = window

	width, height := window.GetFramebufferSize()
	a.NotifyResize(uint32(width), uint32(height))

	return nil
}

func (a *App) frameBufferResizeCallback(
	w *glfw.Window,
	width int,
	height int,
) {
	a.frameBufferResized = true
	a.NotifyResize(uint32(width), uint32(height))
}

func (a *App) cleanWindow() {
	a.window.Destroy()
	glfw.Terminate()
}

func (a *App) initVulkan() error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())

	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to init Vulkan Go: %w", err)
	}

	glfwExtensions := glfw.GetCurrentContext().GetRequiredInstanceExtensions()
	a.instanceExtensions = nullTerminated(
		append(glfwExtensions, "VK_EXT_debug_report"),
	)

	if err := a.createInstance(); err != nil {
		return fmt.Errorf("createInstance: %w", err)
	}

	if err := a.createDebugCallback(); err != nil {
		return fmt.Errorf("createDebugCallback: %w", err)
	}

	if err := a.createSurface(); err != nil {
		return fmt.Errorf("createSurface: %w", err)
	}

	if err := a.pickPhysicalDevice(); err != nil {
		return fmt.Errorf("pickPhysicalDevice: %w", err)
	}

	if err := a.createLogicalDevice(); err != nil {
		return fmt.Errorf("createLogicalDevice: %w", err)
	}

	if err := a.createSwapChain(); err != nil {
		return fmt.Errorf("createSwapChain: %w", err)
	}

	if err := a.createSwapchainImageViews(); err != nil {
		return fmt.Errorf("createSwapchainImageViews: %w", err)
	}

	if err := a.createRenderPass(); err != nil {
		return fmt.Errorf("createRenderPass: %w", err)
	}

	if err := a.createDescriptorSetLayout(); err != nil {
		return fmt.Errorf("createDescriptorSetLayout: %w", err)
	}

	if err := a.createGraphicsPipeline(); err != nil {
		return fmt.Errorf("createGraphicsPipeline: %w", err)
	}

	if err := a.createFramebuffers(); err != nil {
		return fmt.Errorf("createFramebuffers: %w", err)
	}

	if err := a.createCommandPool(); err != nil {
		return fmt.Errorf("createCommandPool: %w", err)
	}

	if err := a.createTextureImage(); err != nil {
		return fmt.Errorf("createTextureImage: %w", err)
	}

	if err := a.createTextureImageView(); err != nil {
		return fmt.Errorf("createTextureImageView: %w", err)
	}

	if err := a.createTextureSampler(); err != nil {
		return fmt.Errorf("createTextureSampler: %w", err)
	}

	if err := a.createVertexBuffer(); err != nil {
		return fmt.Errorf("createVertexBuffer: %w", err)
	}

	if err := a.createIndexBuffer(); err != nil {
		return fmt.Errorf("createIndexBuffer: %w", err)
	}

	if err := a.createUniformBuffers(); err != nil {
		return fmt.Errorf("createUniformBuffers: %w", err)
	}

	if err := a.createDescriptorPool(); err != nil {
		return fmt.Errorf("createDescriptorPool: %w", err)
	}

	if err := a.createDescriptorSets(); err != nil {
		return fmt.Errorf("createDescriptorSets: %w", err)
	}

	if err := a.createCommandBuffers(); err != nil {
		return fmt.Errorf("createCommandBuffers: %w", err)
	}

	if err := a.createSyncObjects(); err != nil {
		return fmt.Errorf("createSyncObjects: %w", err)
	}

	a.driver = frameDriver{backend: a}

	return nil
}

func (a *App) cleanupVulkan() {
	for i := 0; i < len(a.inFlightFences); i++ {
		vk.DestroySemaphore(a.device, a.imageAvailableSems[i], nil)
		vk.DestroySemaphore(a.device, a.renderFinishedSems[i], nil)
		vk.DestroyFence(a.device, a.inFlightFences[i], nil)
	}

	vk.DestroyCommandPool(a.device, a.commandPool, nil)

	vk.DestroyPipeline(a.device, a.graphicsPipeline, nil)
	vk.DestroyPipelineLayout(a.device, a.pipelineLayout, nil)

	a.cleanupSwapChain()

	if a.textureSampler != vk.NullSampler {
		vk.DestroySampler(a.device, a.textureSampler, nil)
	}

	if a.textureImageView != vk.NullImageView {
		vk.DestroyImageView(a.device, a.textureImageView, nil)
	}

	a.textureImage.release(a.device)

	for i := range a.uniformBuffers {
		a.uniformBuffers[i].release(a.device)
	}

	if a.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(a.device, a.descriptorPool, nil)
	}

	if a.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(a.device, a.descriptorSetLayout, nil)
	}

	a.vertexBuffer.release(a.device)
	a.indexBuffer.release(a.device)

	vk.DestroyRenderPass(a.device, a.renderPass, nil)

	if a.device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(a.device, nil)
	}
	if a.surface != vk.NullSurface {
		vk.DestroySurface(a.instance, a.surface, nil)
	}
	if a.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(a.instance, a.debugCallback, nil)
	}
	vk.DestroyInstance(a.instance, nil)
}

func (a *App) mainLoop() error {
	for !a.window.ShouldClose() {
		if err := a.driver.drawFrame(); err != nil {
			return fmt.Errorf("error drawing a frame: %w", err)
		}

		glfw.PollEvents()
	}

	vk.DeviceWaitIdle(a.device)

	return nil
}
