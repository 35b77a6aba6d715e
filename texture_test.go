package main

import (
	"errors"
	"image"
	"testing"

	"github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"
)

func TestRGBAPixelsAcceptsRGBAImages(t *testing.T) {
	g := gomega.NewWithT(t)

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Pix[0] = 0xff

	pixels, err := rgbaPixels(img)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(pixels).To(gomega.HaveLen(2 * 2 * 4))
	g.Expect(pixels[0]).To(gomega.Equal(uint8(0xff)))
}

func TestRGBAPixelsRejectsOtherSources(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{name: "grayscale", img: image.NewGray(image.Rect(0, 0, 2, 2))},
		{name: "paletted", img: image.NewPaletted(image.Rect(0, 0, 2, 2), nil)},
		{name: "premultiplied", img: image.NewRGBA(image.Rect(0, 0, 2, 2))},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			g := gomega.NewWithT(t)

			_, err := rgbaPixels(test.img)
			g.Expect(err).To(gomega.HaveOccurred())

			var textureErr *TextureError
			g.Expect(errors.As(err, &textureErr)).To(gomega.BeTrue())
			g.Expect(errorTitle(err)).To(gomega.Equal("Texture Error"))
		})
	}
}

func TestLayoutTransitionMasksUploadTransition(t *testing.T) {
	g := gomega.NewWithT(t)

	transition, err := layoutTransitionMasks(
		vk.ImageLayoutUndefined,
		vk.ImageLayoutTransferDstOptimal,
	)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(transition.srcAccessMask).To(gomega.Equal(vk.AccessFlags(0)))
	g.Expect(transition.dstAccessMask).To(gomega.Equal(
		vk.AccessFlags(vk.AccessTransferWriteBit),
	))
	g.Expect(transition.srcStage).To(gomega.Equal(
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
	))
	g.Expect(transition.dstStage).To(gomega.Equal(
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	))
}

func TestLayoutTransitionMasksSampleTransition(t *testing.T) {
	g := gomega.NewWithT(t)

	transition, err := layoutTransitionMasks(
		vk.ImageLayoutTransferDstOptimal,
		vk.ImageLayoutShaderReadOnlyOptimal,
	)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(transition.srcAccessMask).To(gomega.Equal(
		vk.AccessFlags(vk.AccessTransferWriteBit),
	))
	g.Expect(transition.dstAccessMask).To(gomega.Equal(
		vk.AccessFlags(vk.AccessShaderReadBit),
	))
	g.Expect(transition.srcStage).To(gomega.Equal(
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	))
	g.Expect(transition.dstStage).To(gomega.Equal(
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	))
}

func TestLayoutTransitionMasksRejectsUnknownTransitions(t *testing.T) {
	tests := []struct {
		name string
		old  vk.ImageLayout
		new  vk.ImageLayout
	}{
		{
			name: "reversed upload",
			old:  vk.ImageLayoutTransferDstOptimal,
			new:  vk.ImageLayoutUndefined,
		},
		{
			name: "skipping the upload step",
			old:  vk.ImageLayoutUndefined,
			new:  vk.ImageLayoutShaderReadOnlyOptimal,
		},
		{
			name: "present source",
			old:  vk.ImageLayoutUndefined,
			new:  vk.ImageLayoutPresentSrc,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			g := gomega.NewWithT(t)

			_, err := layoutTransitionMasks(test.old, test.new)
			g.Expect(err).To(gomega.HaveOccurred())

			var transitionErr *UnsupportedTransitionError
			g.Expect(errors.As(err, &transitionErr)).To(gomega.BeTrue())
			g.Expect(transitionErr.OldLayout).To(gomega.Equal(test.old))
			g.Expect(transitionErr.NewLayout).To(gomega.Equal(test.new))
			g.Expect(errorTitle(err)).To(gomega.Equal("Texture Error"))
		})
	}
}
