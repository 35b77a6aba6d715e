package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// rgbaPixels returns the raw RGBA bytes of a decoded texture. Only 8-bit
// RGBA sources are accepted, everything else is rejected before any GPU
// work happens.
func rgbaPixels(img image.Image) ([]byte, error) {
	rgba, ok := img.(*image.NRGBA)
	if !ok {
		return nil, &TextureError{Message: "texture must be an RGBA image"}
	}

	return rgba.Pix, nil
}

// layoutTransition is the barrier configuration for a known image layout
// transition.
type layoutTransition struct {
	srcAccessMask vk.AccessFlags
	dstAccessMask vk.AccessFlags
	srcStage      vk.PipelineStageFlags
	dstStage      vk.PipelineStageFlags
}

// layoutTransitionMasks returns the barrier masks for the transitions the
// program performs. Any other combination of layouts is an error.
func layoutTransitionMasks(
	oldLayout vk.ImageLayout,
	newLayout vk.ImageLayout,
) (layoutTransition, error) {
	if oldLayout == vk.ImageLayoutUndefined &&
		newLayout == vk.ImageLayoutTransferDstOptimal {

		return layoutTransition{
			srcAccessMask: 0,
			dstAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:      vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:      vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	}

	if oldLayout == vk.ImageLayoutTransferDstOptimal &&
		newLayout == vk.ImageLayoutShaderReadOnlyOptimal {

		return layoutTransition{
			srcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:      vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:      vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}

	return layoutTransition{}, &UnsupportedTransitionError{
		OldLayout: oldLayout,
		NewLayout: newLayout,
	}
}

// createTextureImage loads a PNG from disk and uploads it into an optimal
// tiled sampled image through a staging buffer.
func (a *App) createTextureImage() error {
	fh, err := os.Open(a.texturePath)
	if err != nil {
		return &IOError{Path: a.texturePath, Err: err}
	}
	defer fh.Close()

	img, err := png.Decode(fh)
	if err != nil {
		return &IOError{Path: a.texturePath, Err: err}
	}

	pixels, err := rgbaPixels(img)
	if err != nil {
		return err
	}

	imgBoundsSize := img.Bounds().Size()
	texWidth := uint32(imgBoundsSize.X)
	texHeight := uint32(imgBoundsSize.Y)

	imgSize := vk.DeviceSize(len(pixels))

	stagingBuffer, err := a.createBuffer(
		imgSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return fmt.Errorf("failed to create texture staging buffer: %w", err)
	}
	defer stagingBuffer.release(a.device)

	var pData unsafe.Pointer
	vk.MapMemory(a.device, stagingBuffer.memory, 0, imgSize, 0, &pData)
	vk.Memcopy(pData, pixels)
	vk.UnmapMemory(a.device, stagingBuffer.memory)

	textureImage, err := a.createImage(
		texWidth,
		texHeight,
		vk.FormatR8g8b8a8Srgb,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return fmt.Errorf("failed to create Vulkan image: %w", err)
	}
	a.textureImage = textureImage

	err = a.transitionImageLayout(
		a.textureImage.image,
		vk.ImageLayoutUndefined,
		vk.ImageLayoutTransferDstOptimal,
	)
	if err != nil {
		return fmt.Errorf("transition image layout: %w", err)
	}

	err = a.copyBufferToImage(stagingBuffer.buffer, a.textureImage.image,
		texWidth, texHeight)
	if err != nil {
		return fmt.Errorf("copying buffer to image: %w", err)
	}

	err = a.transitionImageLayout(
		a.textureImage.image,
		vk.ImageLayoutTransferDstOptimal,
		vk.ImageLayoutShaderReadOnlyOptimal,
	)
	if err != nil {
		return fmt.Errorf("transitioning to read only optimal layout: %w", err)
	}

	return nil
}

func (a *App) transitionImageLayout(
	image vk.Image,
	oldLayout vk.ImageLayout,
	newLayout vk.ImageLayout,
) error {
	transition, err := layoutTransitionMasks(oldLayout, newLayout)
	if err != nil {
		return err
	}

	commandBuffer, err := a.beginSingleTimeCommands()
	if err != nil {
		return fmt.Errorf("failed to begin single time commands: %w", err)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: transition.srcAccessMask,
		DstAccessMask: transition.dstAccessMask,
	}

	vk.CmdPipelineBarrier(
		commandBuffer,
		transition.srcStage, transition.dstStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)

	return a.endSingleTimeCommands(commandBuffer)
}

func (a *App) copyBufferToImage(
	buffer vk.Buffer,
	image vk.Image,
	width, height uint32,
) error {
	commandBuffer, err := a.beginSingleTimeCommands()
	if err != nil {
		return fmt.Errorf("failed to begin single time command buffer: %w", err)
	}

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,

		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},

		ImageOffset: vk.Offset3D{
			X: 0, Y: 0, Z: 0,
		},

		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}

	vk.CmdCopyBufferToImage(
		commandBuffer,
		buffer,
		image,
		vk.ImageLayoutTransferDstOptimal,
		1,
		[]vk.BufferImageCopy{region},
	)

	return a.endSingleTimeCommands(commandBuffer)
}

func (a *App) createTextureImageView() error {
	textureImageView, err := a.createImageView(
		a.textureImage.image,
		vk.FormatR8g8b8a8Srgb,
	)
	if err != nil {
		return err
	}
	a.textureImageView = textureImageView

	return nil
}

func (a *App) createImageView(
	image vk.Image,
	format vk.Format,
) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var imageView vk.ImageView
	res := vk.CreateImageView(a.device, &createInfo, nil, &imageView)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("failed to create image view: %w", err)
	}

	return imageView, nil
}

func (a *App) createTextureSampler() error {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(a.physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           properties.Limits.MaxSamplerAnisotropy,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}

	var sampler vk.Sampler
	res := vk.CreateSampler(a.device, &samplerInfo, nil, &sampler)
	if res != vk.Success {
		return fmt.Errorf("failed to create sampler: %w", vk.Error(res))
	}
	a.textureSampler = sampler

	return nil
}
