package main

import (
	"math"
	"testing"

	"github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSwapSurfaceFormatPrefersSRGB(t *testing.T) {
	g := gomega.NewWithT(t)

	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	chosen := chooseSwapSurfaceFormat(formats)
	g.Expect(chosen.Format).To(gomega.Equal(vk.FormatB8g8r8a8Srgb))
	g.Expect(chosen.ColorSpace).To(gomega.Equal(vk.ColorSpaceSrgbNonlinear))
}

func TestChooseSwapSurfaceFormatFallsBackToFirst(t *testing.T) {
	g := gomega.NewWithT(t)

	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	chosen := chooseSwapSurfaceFormat(formats)
	g.Expect(chosen.Format).To(gomega.Equal(vk.FormatR8g8b8a8Unorm))
}

func TestChooseSwapPresentModePrefersMailbox(t *testing.T) {
	g := gomega.NewWithT(t)

	mode, err := chooseSwapPresentMode([]vk.PresentMode{
		vk.PresentModeFifo,
		vk.PresentModeMailbox,
		vk.PresentModeImmediate,
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(mode).To(gomega.Equal(vk.PresentModeMailbox))
}

func TestChooseSwapPresentModeFallsBackToFifo(t *testing.T) {
	g := gomega.NewWithT(t)

	mode, err := chooseSwapPresentMode([]vk.PresentMode{
		vk.PresentModeImmediate,
		vk.PresentModeFifo,
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(mode).To(gomega.Equal(vk.PresentModeFifo))
}

func TestChooseSwapPresentModeErrorsWithoutSupportedMode(t *testing.T) {
	g := gomega.NewWithT(t)

	_, err := chooseSwapPresentMode([]vk.PresentMode{
		vk.PresentModeImmediate,
	})
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(errorTitle(err)).To(gomega.Equal("Device Error"))
}

func TestChooseSwapExtendUsesCurrentExtent(t *testing.T) {
	g := gomega.NewWithT(t)

	capabilities := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}

	extend := chooseSwapExtend(capabilities, 640, 480)
	g.Expect(extend).To(gomega.Equal(vk.Extent2D{Width: 800, Height: 600}))
}

func TestChooseSwapExtendClampsLastKnownSize(t *testing.T) {
	g := gomega.NewWithT(t)

	capabilities := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{
			Width:  math.MaxUint32,
			Height: math.MaxUint32,
		},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 1024, Height: 768},
	}

	extend := chooseSwapExtend(capabilities, 2000, 50)
	g.Expect(extend).To(gomega.Equal(vk.Extent2D{Width: 1024, Height: 100}))

	extend = chooseSwapExtend(capabilities, 640, 480)
	g.Expect(extend).To(gomega.Equal(vk.Extent2D{Width: 640, Height: 480}))
}

func TestCheckSwapchainCounts(t *testing.T) {
	g := gomega.NewWithT(t)

	g.Expect(checkSwapchainCounts(3, 3, 3)).To(gomega.Succeed())

	err := checkSwapchainCounts(3, 2, 3)
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(errorTitle(err)).To(gomega.Equal("Device Error"))

	g.Expect(checkSwapchainCounts(3, 3, 0)).To(gomega.HaveOccurred())
}

func TestSwapImageCount(t *testing.T) {
	g := gomega.NewWithT(t)

	// One more than the minimum when allowed.
	count := swapImageCount(vk.SurfaceCapabilities{
		MinImageCount: 2,
		MaxImageCount: 8,
	})
	g.Expect(count).To(gomega.Equal(uint32(3)))

	// Clamped to the maximum.
	count = swapImageCount(vk.SurfaceCapabilities{
		MinImageCount: 3,
		MaxImageCount: 3,
	})
	g.Expect(count).To(gomega.Equal(uint32(3)))

	// A zero maximum means no limit.
	count = swapImageCount(vk.SurfaceCapabilities{
		MinImageCount: 4,
		MaxImageCount: 0,
	})
	g.Expect(count).To(gomega.Equal(uint32(5)))
}
