package main

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// TitledError is an error which carries a short title suitable for showing
// to the user next to the full message.
type TitledError interface {
	error
	Title() string
}

// InstanceError is returned when the Vulkan instance cannot be created with
// the capabilities required by the program.
type InstanceError struct {
	Message string
}

func (e *InstanceError) Error() string { return e.Message }

// Title implements TitledError.
func (e *InstanceError) Title() string { return "Instance Error" }

// DeviceError is returned for failures related to selecting or using a
// physical or logical device.
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string { return e.Message }

// Title implements TitledError.
func (e *DeviceError) Title() string { return "Device Error" }

// IOError annotates a file system error with the path which caused it.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// Title implements TitledError.
func (e *IOError) Title() string { return "IO Error" }

// TextureError is returned when a texture source cannot be used as an RGBA
// image for uploading to the GPU.
type TextureError struct {
	Message string
}

func (e *TextureError) Error() string { return e.Message }

// Title implements TitledError.
func (e *TextureError) Title() string { return "Texture Error" }

// UnsupportedTransitionError is returned when an image layout transition
// outside of the known set is requested.
type UnsupportedTransitionError struct {
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
}

func (e *UnsupportedTransitionError) Error() string {
	return fmt.Sprintf(
		"unsupported layout transition from %d to %d",
		e.OldLayout, e.NewLayout,
	)
}

// Title implements TitledError.
func (e *UnsupportedTransitionError) Title() string { return "Texture Error" }

// errorTitle returns the title of the first TitledError in the chain of err.
func errorTitle(err error) string {
	var titled TitledError
	if errors.As(err, &titled) {
		return titled.Title()
	}
	return "Error"
}
