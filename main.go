package main

import (
	"flag"
	"log"
	"runtime"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

func init() {
	// This is needed to arrange that main() runs on main thread.
	// See documentation for functions that are only allowed to be called
	// from the main thread.
	runtime.LockOSThread()

	flag.BoolVar(&args.debug, "debug", false,
		"Log informational validation layer messages")
	flag.StringVar(&args.texturePath, "texture", "cobble1.png",
		"Path to the PNG texture shown on the quad")
	flag.StringVar(&args.vertShaderPath, "vert", "shaders/vert.spv",
		"Path to the compiled vertex shader")
	flag.StringVar(&args.fragShaderPath, "frag", "shaders/frag.spv",
		"Path to the compiled fragment shader")
}

var args struct {
	debug bool

	texturePath    string
	vertShaderPath string
	fragShaderPath string
}

const (
	title             = "Vulkan Project"
	maxFramesInFlight = 2
)

func main() {
	flag.Parse()

	app := &App{
		width:  640,
		height: 480,

		texturePath:    args.texturePath,
		vertShaderPath: args.vertShaderPath,
		fragShaderPath: args.fragShaderPath,

		startTime: time.Now(),
		validationLayers: []string{
			"VK_LAYER_KHRONOS_validation\x00",
		},
		deviceExtensions: []string{
			vk.KhrSwapchainExtensionName + "\x00",
		},
		physicalDevice: vk.PhysicalDevice(vk.NullHandle),
		device:         vk.Device(vk.NullHandle),
		surface:        vk.NullSurface,
		swapChain:      vk.NullSwapchain,

		vertices: quadVertices(),
		indices:  quadIndices(),

		descriptorPool:      vk.NullDescriptorPool,
		descriptorSetLayout: vk.NullDescriptorSetLayout,
		textureSampler:      vk.NullSampler,
	}
	if err := app.Run(); err != nil {
		log.Fatalf("%s: %s", errorTitle(err), err)
	}
}
