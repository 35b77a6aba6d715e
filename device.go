package main

import (
	"fmt"
	"log"

	"github.com/lukeparsons/vkproject/queues"

	vk "github.com/vulkan-go/vulkan"
)

// deviceSupport is everything the program checks about a physical device
// before agreeing to use it.
type deviceSupport struct {
	name string

	hasSwapchainExtension bool
	hasGraphicsQueue      bool
	hasPresentQueue       bool
	formatCount           int
	presentModeCount      int
	samplerAnisotropy     bool
}

// rejectionReason returns a human readable reason for which the device
// cannot be used or an empty string when the device passes every check. The
// checks are reported in the order they are performed.
func (d *deviceSupport) rejectionReason() string {
	switch {
	case !d.hasSwapchainExtension:
		return "missing the swapchain extension"
	case !d.hasGraphicsQueue:
		return "no graphics queue family"
	case !d.hasPresentQueue:
		return "no presentation queue family"
	case d.formatCount == 0:
		return "no surface formats"
	case d.presentModeCount == 0:
		return "no present modes"
	case !d.samplerAnisotropy:
		return "no sampler anisotropy support"
	}

	return ""
}

// suitable returns true when the device passes every check.
func (d *deviceSupport) suitable() bool {
	return d.rejectionReason() == ""
}

// pickPhysicalDevice selects the first enumerated device which passes all
// of the program's checks. Devices which fail a check are logged together
// with the reason.
func (a *App) pickPhysicalDevice() error {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(a.instance, &deviceCount, nil))
	if err != nil {
		return fmt.Errorf("failed to get the number of physical devices: %w", err)
	}
	if deviceCount == 0 {
		return &DeviceError{Message: "failed to find GPUs with Vulkan support"}
	}

	pDevices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(a.instance, &deviceCount, pDevices))
	if err != nil {
		return fmt.Errorf("failed to enumerate the physical devices: %w", err)
	}

	for _, device := range pDevices {
		support := a.queryDeviceSupport(device)

		if reason := support.rejectionReason(); reason != "" {
			log.Printf("WARNING: skipping device %s: %s", support.name, reason)
			continue
		}

		a.physicalDevice = device
		a.deviceName = support.name
		log.Printf("Using device: %s", support.name)
		return nil
	}

	return &DeviceError{Message: "failed to find a suitable physical device"}
}

// queryDeviceSupport gathers all device facts needed by the suitability
// checks into a plain struct.
func (a *App) queryDeviceSupport(device vk.PhysicalDevice) deviceSupport {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	support := deviceSupport{
		name: vk.ToString(properties.DeviceName[:]),
	}

	support.hasSwapchainExtension = a.checkDeviceExtensionSupport(device)

	indices := a.findQueueFamilies(device)
	support.hasGraphicsQueue = indices.Graphics.HasValue()
	support.hasPresentQueue = indices.Present.HasValue()

	if support.hasSwapchainExtension {
		details := a.querySwapChainSupport(device)
		support.formatCount = len(details.formats)
		support.presentModeCount = len(details.presentModes)
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()
	support.samplerAnisotropy = features.SamplerAnisotropy.B()

	return support
}

func (a *App) checkDeviceExtensionSupport(device vk.PhysicalDevice) bool {
	var extensionsCount uint32
	res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount, nil)
	if err := vk.Error(res); err != nil {
		log.Printf(
			"WARNING: enumerating device extension properties count: %s",
			err,
		)
		return false
	}

	availableExtensions := make([]vk.ExtensionProperties, extensionsCount)
	res = vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount,
		availableExtensions)
	if err := vk.Error(res); err != nil {
		log.Printf("WARNING: getting device extension properties: %s", err)
		return false
	}

	availableNames := make([]string, 0, extensionsCount)
	for _, extension := range availableExtensions {
		extension.Deref()
		availableNames = append(availableNames, vk.ToString(extension.ExtensionName[:]))
	}

	return len(missingNames(a.deviceExtensions, availableNames)) == 0
}

// findQueueFamilies returns a FamilyIndices populated with Vulkan queue
// families needed by the program.
func (a *App) findQueueFamilies(device vk.PhysicalDevice) queues.FamilyIndices {
	indices := queues.FamilyIndices{}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)

	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i, family := range queueFamilies {
		family.Deref()

		if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics.Set(uint32(i))
		}

		var hasPresent vk.Bool32
		err := vk.Error(
			vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), a.surface, &hasPresent),
		)
		if err != nil {
			log.Printf("error querying surface support for queue family %d: %s", i, err)
		} else if hasPresent.B() {
			indices.Present.Set(uint32(i))
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}

func (a *App) createLogicalDevice() error {
	indices := a.findQueueFamilies(a.physicalDevice)
	if !indices.IsComplete() {
		return &DeviceError{
			Message: "createLogicalDevice called for physical device which does " +
				"not have all the queues required by the program",
		}
	}

	queueFamilies := make(map[uint32]struct{})
	queueFamilies[indices.Graphics.Get()] = struct{}{}
	queueFamilies[indices.Present.Get()] = struct{}{}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{}

	for familyIndex := range queueFamilies {
		queueCreateInfos = append(
			queueCreateInfos,
			vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: familyIndex,
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		)
	}

	deviceFeatures := []vk.PhysicalDeviceFeatures{{
		SamplerAnisotropy: vk.True,
	}}

	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: deviceFeatures,

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(a.deviceExtensions)),
		PpEnabledExtensionNames: a.deviceExtensions,

		EnabledLayerCount:   uint32(len(a.validationLayers)),
		PpEnabledLayerNames: a.validationLayers,
	}

	var device vk.Device
	err := vk.Error(vk.CreateDevice(a.physicalDevice, &createInfo, nil, &device))
	if err != nil {
		return fmt.Errorf("failed to create logical device: %w", err)
	}
	a.device = device

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(a.device, indices.Graphics.Get(), 0, &graphicsQueue)
	a.graphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(a.device, indices.Present.Get(), 0, &presentQueue)
	a.presentQueue = presentQueue

	return nil
}
