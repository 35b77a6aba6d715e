package main

import (
	"testing"

	"github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"
)

var (
	hostVisible  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	deviceLocal  = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

func TestFindMemoryTypeIndexPicksFirstSuitable(t *testing.T) {
	g := gomega.NewWithT(t)

	memoryTypeFlags := []vk.MemoryPropertyFlags{
		deviceLocal,
		hostVisible,
		hostVisible | hostCoherent,
		hostVisible | hostCoherent,
	}

	index, err := findMemoryTypeIndex(
		0b1111,
		memoryTypeFlags,
		hostVisible|hostCoherent,
	)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(index).To(gomega.Equal(uint32(2)))
}

func TestFindMemoryTypeIndexAcceptsSupersetFlags(t *testing.T) {
	g := gomega.NewWithT(t)

	memoryTypeFlags := []vk.MemoryPropertyFlags{
		deviceLocal | hostVisible | hostCoherent,
	}

	index, err := findMemoryTypeIndex(0b1, memoryTypeFlags, hostVisible)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(index).To(gomega.Equal(uint32(0)))
}

func TestFindMemoryTypeIndexHonoursTypeFilter(t *testing.T) {
	g := gomega.NewWithT(t)

	memoryTypeFlags := []vk.MemoryPropertyFlags{
		hostVisible | hostCoherent,
		hostVisible | hostCoherent,
	}

	// The first type has the right flags but is excluded by the filter.
	index, err := findMemoryTypeIndex(
		0b10,
		memoryTypeFlags,
		hostVisible|hostCoherent,
	)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(index).To(gomega.Equal(uint32(1)))
}

func TestFindMemoryTypeIndexZeroFilter(t *testing.T) {
	g := gomega.NewWithT(t)

	memoryTypeFlags := []vk.MemoryPropertyFlags{
		deviceLocal,
		hostVisible | hostCoherent,
	}

	_, err := findMemoryTypeIndex(0, memoryTypeFlags, hostVisible)
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(errorTitle(err)).To(gomega.Equal("Device Error"))
}

func TestFindMemoryTypeIndexNoMatchingProperties(t *testing.T) {
	g := gomega.NewWithT(t)

	memoryTypeFlags := []vk.MemoryPropertyFlags{
		deviceLocal,
		hostVisible,
	}

	_, err := findMemoryTypeIndex(
		0b11,
		memoryTypeFlags,
		hostVisible|hostCoherent,
	)
	g.Expect(err).To(gomega.HaveOccurred())
}

func TestClamp(t *testing.T) {
	g := gomega.NewWithT(t)

	g.Expect(clamp(uint32(5), 1, 10)).To(gomega.Equal(uint32(5)))
	g.Expect(clamp(uint32(0), 1, 10)).To(gomega.Equal(uint32(1)))
	g.Expect(clamp(uint32(11), 1, 10)).To(gomega.Equal(uint32(10)))
}
