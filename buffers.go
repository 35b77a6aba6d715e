package main

import (
	"cmp"
	"fmt"
	"unsafe"

	"github.com/lukeparsons/vkproject/unsafer"

	vk "github.com/vulkan-go/vulkan"
)

// gpuBuffer owns a Vulkan buffer together with the device memory backing
// it. The memory is always bound at offset zero.
type gpuBuffer struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
}

// release destroys the buffer and frees its memory.
func (b *gpuBuffer) release(device vk.Device) {
	if b.buffer != vk.NullBuffer {
		vk.DestroyBuffer(device, b.buffer, nil)
		b.buffer = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.memory, nil)
		b.memory = vk.NullDeviceMemory
	}
}

// gpuImage owns a Vulkan image together with the device memory backing it.
type gpuImage struct {
	image  vk.Image
	memory vk.DeviceMemory
}

// release destroys the image and frees its memory.
func (im *gpuImage) release(device vk.Device) {
	if im.image != vk.NullImage {
		vk.DestroyImage(device, im.image, nil)
		im.image = vk.NullImage
	}
	if im.memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, im.memory, nil)
		im.memory = vk.NullDeviceMemory
	}
}

// findMemoryTypeIndex returns the first memory type allowed by typeFilter
// whose property flags include all of the required properties.
func findMemoryTypeIndex(
	typeFilter uint32,
	memoryTypeFlags []vk.MemoryPropertyFlags,
	properties vk.MemoryPropertyFlags,
) (uint32, error) {
	for i, flags := range memoryTypeFlags {
		if typeFilter&(1<<uint32(i)) == 0 {
			continue
		}

		if flags&properties != properties {
			continue
		}

		return uint32(i), nil
	}

	return 0, &DeviceError{Message: "failed to find suitable memory type"}
}

func (a *App) findMemoryType(
	typeFilter uint32,
	properties vk.MemoryPropertyFlags,
) (uint32, error) {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(a.physicalDevice, &memProperties)
	memProperties.Deref()

	memoryTypeFlags := make([]vk.MemoryPropertyFlags, memProperties.MemoryTypeCount)
	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memType := memProperties.MemoryTypes[i]
		memType.Deref()
		memoryTypeFlags[i] = memType.PropertyFlags
	}

	return findMemoryTypeIndex(typeFilter, memoryTypeFlags, properties)
}

func (a *App) createBuffer(
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	properties vk.MemoryPropertyFlags,
) (gpuBuffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer gpuBuffer
	res := vk.CreateBuffer(a.device, &bufferInfo, nil, &buffer.buffer)
	if res != vk.Success {
		return buffer, fmt.Errorf("failed to create buffer: %w", vk.Error(res))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, buffer.buffer, &memRequirements)
	memRequirements.Deref()

	memTypeIndex, err := a.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		return buffer, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	res = vk.AllocateMemory(a.device, &allocInfo, nil, &buffer.memory)
	if res != vk.Success {
		return buffer, fmt.Errorf("failed to allocate buffer memory: %w", vk.Error(res))
	}

	res = vk.BindBufferMemory(a.device, buffer.buffer, buffer.memory, 0)
	if res != vk.Success {
		return buffer, fmt.Errorf("failed to bind buffer memory: %w", vk.Error(res))
	}

	return buffer, nil
}

func (a *App) createImage(
	width uint32,
	height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	properties vk.MemoryPropertyFlags,
) (gpuImage, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var image gpuImage
	res := vk.CreateImage(a.device, &imageInfo, nil, &image.image)
	if res != vk.Success {
		return image, fmt.Errorf("failed to create an image: %w", vk.Error(res))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, image.image, &memRequirements)
	memRequirements.Deref()

	memTypeIndex, err := a.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		return image, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	res = vk.AllocateMemory(a.device, &allocInfo, nil, &image.memory)
	if res != vk.Success {
		return image, fmt.Errorf("failed to allocate image memory: %w", vk.Error(res))
	}

	res = vk.BindImageMemory(a.device, image.image, image.memory, 0)
	if res != vk.Success {
		return image, fmt.Errorf("failed to bind image memory: %w", vk.Error(res))
	}

	return image, nil
}

// createStagedBuffer creates a device local buffer with the given usage and
// uploads data into it through a temporary host visible staging buffer.
func (a *App) createStagedBuffer(
	data []byte,
	usage vk.BufferUsageFlags,
) (gpuBuffer, error) {
	bufferSize := vk.DeviceSize(len(data))

	stagingBuffer, err := a.createBuffer(
		bufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return gpuBuffer{}, fmt.Errorf("creating the staging buffer: %w", err)
	}
	defer stagingBuffer.release(a.device)

	var pData unsafe.Pointer
	vk.MapMemory(a.device, stagingBuffer.memory, 0, bufferSize, 0, &pData)
	vk.Memcopy(pData, data)
	vk.UnmapMemory(a.device, stagingBuffer.memory)

	deviceBuffer, err := a.createBuffer(
		bufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)|usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return gpuBuffer{}, fmt.Errorf("creating the device local buffer: %w", err)
	}

	if err := a.copyBuffer(stagingBuffer.buffer, deviceBuffer.buffer, bufferSize); err != nil {
		deviceBuffer.release(a.device)
		return gpuBuffer{}, fmt.Errorf("failed to copy staging buffer: %w", err)
	}

	return deviceBuffer, nil
}

func (a *App) createVertexBuffer() error {
	buffer, err := a.createStagedBuffer(
		unsafer.SliceToBytes(a.vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
	)
	if err != nil {
		return fmt.Errorf("creating the vertex buffer: %w", err)
	}
	a.vertexBuffer = buffer

	return nil
}

func (a *App) createIndexBuffer() error {
	buffer, err := a.createStagedBuffer(
		unsafer.SliceToBytes(a.indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
	)
	if err != nil {
		return fmt.Errorf("creating the index buffer: %w", err)
	}
	a.indexBuffer = buffer

	return nil
}

func (a *App) copyBuffer(
	srcBuffer vk.Buffer,
	dstBuffer vk.Buffer,
	size vk.DeviceSize,
) error {
	commandBuffer, err := a.beginSingleTimeCommands()
	if err != nil {
		return fmt.Errorf("failed to begin single time commands: %w", err)
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}

	vk.CmdCopyBuffer(commandBuffer, srcBuffer, dstBuffer, 1, []vk.BufferCopy{copyRegion})

	return a.endSingleTimeCommands(commandBuffer)
}

func (a *App) beginSingleTimeCommands() (vk.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        a.commandPool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(
		a.device,
		&allocInfo,
		commandBuffers,
	)
	if res != vk.Success {
		return nil, fmt.Errorf("failed to allocate command buffer: %w", vk.Error(res))
	}
	commandBuffer := commandBuffers[0]

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	vk.BeginCommandBuffer(commandBuffer, &beginInfo)

	return commandBuffer, nil
}

func (a *App) endSingleTimeCommands(commandBuffer vk.CommandBuffer) error {
	commandBuffers := []vk.CommandBuffer{commandBuffer}

	defer func() {
		vk.FreeCommandBuffers(a.device, a.commandPool, 1, commandBuffers)
	}()

	res := vk.EndCommandBuffer(commandBuffer)
	if res != vk.Success {
		return fmt.Errorf("failed end command buffer: %w", vk.Error(res))
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}

	res = vk.QueueSubmit(a.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)
	if res != vk.Success {
		return fmt.Errorf("failed to submit to graphics queue: %w", vk.Error(res))
	}

	res = vk.QueueWaitIdle(a.graphicsQueue)
	if res != vk.Success {
		return fmt.Errorf("failed to wait on graphics queue idle: %w", vk.Error(res))
	}

	return nil
}

// createUniformBuffers creates one host visible uniform buffer per frame in
// flight and keeps them persistently mapped for the lifetime of the
// program.
func (a *App) createUniformBuffers() error {
	bufferSize := vk.DeviceSize(unsafe.Sizeof(UniformBufferObject{}))

	for i := 0; i < maxFramesInFlight; i++ {
		buffer, err := a.createBuffer(
			bufferSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		)
		if err != nil {
			return fmt.Errorf("creating uniform buffer[%d]: %w", i, err)
		}

		a.uniformBuffers = append(a.uniformBuffers, buffer)

		var pData unsafe.Pointer
		vk.MapMemory(a.device, buffer.memory, 0, bufferSize, 0, &pData)
		a.uniformBuffersMapped = append(a.uniformBuffersMapped, pData)
	}

	return nil
}

func (a *App) createDescriptorPool() error {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: maxFramesInFlight,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: maxFramesInFlight,
		},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxFramesInFlight,
	}

	var descriptorPool vk.DescriptorPool
	res := vk.CreateDescriptorPool(a.device, &poolInfo, nil, &descriptorPool)
	if res != vk.Success {
		return fmt.Errorf("failed to create descriptor pool: %w", vk.Error(res))
	}
	a.descriptorPool = descriptorPool

	return nil
}

func (a *App) createDescriptorSets() error {
	layouts := []vk.DescriptorSetLayout{
		a.descriptorSetLayout,
		a.descriptorSetLayout,
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     a.descriptorPool,
		DescriptorSetCount: maxFramesInFlight,
		PSetLayouts:        layouts,
	}

	a.descriptorSets = make([]vk.DescriptorSet, maxFramesInFlight)

	res := vk.AllocateDescriptorSets(a.device, &allocInfo, &a.descriptorSets[0])
	if res != vk.Success {
		return fmt.Errorf("failed to allocate descriptor set: %w", vk.Error(res))
	}

	for i := 0; i < maxFramesInFlight; i++ {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: a.uniformBuffers[i].buffer,
			Offset: 0,
			Range:  vk.DeviceSize(vk.WholeSize),
		}

		imageInfo := vk.DescriptorImageInfo{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   a.textureImageView,
			Sampler:     a.textureSampler,
		}

		descriptorWrites := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          a.descriptorSets[i],
				DstBinding:      0,
				DstArrayElement: 0,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          a.descriptorSets[i],
				DstBinding:      1,
				DstArrayElement: 0,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
			},
		}

		vk.UpdateDescriptorSets(
			a.device,
			uint32(len(descriptorWrites)),
			descriptorWrites,
			0,
			nil,
		)
	}

	return nil
}

func (a *App) createCommandPool() error {
	queueFamilyIndices := a.findQueueFamilies(a.physicalDevice)
	poolInfo := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(
			vk.CommandPoolCreateResetCommandBufferBit,
		),
		QueueFamilyIndex: queueFamilyIndices.Graphics.Get(),
	}

	var commandPool vk.CommandPool
	res := vk.CreateCommandPool(a.device, &poolInfo, nil, &commandPool)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to create command pool: %w", err)
	}
	a.commandPool = commandPool

	return nil
}

func clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		val = min
	}
	if val > max {
		val = max
	}
	return val
}
