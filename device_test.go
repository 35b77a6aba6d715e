package main

import (
	"fmt"
	"testing"

	"github.com/onsi/gomega"
)

func fullDeviceSupport() deviceSupport {
	return deviceSupport{
		name:                  "Test GPU",
		hasSwapchainExtension: true,
		hasGraphicsQueue:      true,
		hasPresentQueue:       true,
		formatCount:           3,
		presentModeCount:      2,
		samplerAnisotropy:     true,
	}
}

func TestDeviceSupportSuitable(t *testing.T) {
	g := gomega.NewWithT(t)

	support := fullDeviceSupport()
	g.Expect(support.suitable()).To(gomega.BeTrue())
	g.Expect(support.rejectionReason()).To(gomega.BeEmpty())
}

func TestDeviceSupportRejectionReasons(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*deviceSupport)
		reason string
	}{
		{
			name:   "no swapchain extension",
			modify: func(d *deviceSupport) { d.hasSwapchainExtension = false },
			reason: "missing the swapchain extension",
		},
		{
			name:   "no graphics queue",
			modify: func(d *deviceSupport) { d.hasGraphicsQueue = false },
			reason: "no graphics queue family",
		},
		{
			name:   "no present queue",
			modify: func(d *deviceSupport) { d.hasPresentQueue = false },
			reason: "no presentation queue family",
		},
		{
			name:   "no surface formats",
			modify: func(d *deviceSupport) { d.formatCount = 0 },
			reason: "no surface formats",
		},
		{
			name:   "no present modes",
			modify: func(d *deviceSupport) { d.presentModeCount = 0 },
			reason: "no present modes",
		},
		{
			name:   "no sampler anisotropy",
			modify: func(d *deviceSupport) { d.samplerAnisotropy = false },
			reason: "no sampler anisotropy support",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			g := gomega.NewWithT(t)

			support := fullDeviceSupport()
			test.modify(&support)

			g.Expect(support.suitable()).To(gomega.BeFalse())
			g.Expect(support.rejectionReason()).To(gomega.Equal(test.reason))
		})
	}
}

func TestDeviceErrorTitle(t *testing.T) {
	g := gomega.NewWithT(t)

	err := &DeviceError{Message: "failed to find a suitable physical device"}
	g.Expect(errorTitle(err)).To(gomega.Equal("Device Error"))

	wrapped := fmt.Errorf("pickPhysicalDevice: %w", err)
	g.Expect(errorTitle(wrapped)).To(gomega.Equal("Device Error"))
}
