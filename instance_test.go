package main

import (
	"testing"

	"github.com/onsi/gomega"
)

func TestMissingNamesReportsEveryMissingName(t *testing.T) {
	g := gomega.NewWithT(t)

	required := []string{
		"VK_KHR_surface",
		"VK_KHR_xcb_surface",
		"VK_EXT_debug_report",
	}
	available := []string{
		"VK_KHR_surface",
		"VK_KHR_display",
	}

	missing := missingNames(required, available)
	g.Expect(missing).To(gomega.Equal([]string{
		"VK_KHR_xcb_surface",
		"VK_EXT_debug_report",
	}))
}

func TestMissingNamesEmptyWhenAllPresent(t *testing.T) {
	g := gomega.NewWithT(t)

	required := []string{"VK_KHR_surface", "VK_EXT_debug_report"}
	available := []string{
		"VK_EXT_debug_report",
		"VK_KHR_surface",
		"VK_KHR_display",
	}

	g.Expect(missingNames(required, available)).To(gomega.BeEmpty())
}

func TestMissingNamesIgnoresTrailingNulBytes(t *testing.T) {
	g := gomega.NewWithT(t)

	required := []string{
		"VK_LAYER_KHRONOS_validation\x00",
		"VK_EXT_debug_report\x00",
	}
	available := []string{"VK_LAYER_KHRONOS_validation"}

	missing := missingNames(required, available)
	g.Expect(missing).To(gomega.Equal([]string{"VK_EXT_debug_report"}))
}

func TestNullTerminated(t *testing.T) {
	g := gomega.NewWithT(t)

	names := nullTerminated([]string{
		"VK_KHR_surface",
		"VK_EXT_debug_report\x00",
	})

	g.Expect(names).To(gomega.Equal([]string{
		"VK_KHR_surface\x00",
		"VK_EXT_debug_report\x00",
	}))
}

func TestInstanceErrorTitle(t *testing.T) {
	g := gomega.NewWithT(t)

	err := &InstanceError{
		Message: "missing required instance capabilities: " +
			"VK_EXT_debug_report, VK_LAYER_KHRONOS_validation",
	}

	g.Expect(errorTitle(err)).To(gomega.Equal("Instance Error"))
	g.Expect(err.Error()).To(gomega.ContainSubstring(
		"VK_EXT_debug_report, VK_LAYER_KHRONOS_validation",
	))
}
