package main

import (
	"fmt"
	"log"
	"strings"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// missingNames returns every name from required which is not present in
// available. Trailing NUL bytes are ignored on both sides so names coming
// from Vulkan enumeration calls and NUL-terminated Go literals compare
// equal. The result preserves the order of required.
func missingNames(required []string, available []string) []string {
	availableSet := make(map[string]struct{}, len(available))
	for _, name := range available {
		availableSet[strings.TrimRight(name, "\x00")] = struct{}{}
	}

	var missing []string
	for _, name := range required {
		trimmed := strings.TrimRight(name, "\x00")
		if _, ok := availableSet[trimmed]; !ok {
			missing = append(missing, trimmed)
		}
	}

	return missing
}

// nullTerminated makes sure every name in the list carries the trailing NUL
// byte expected by the C side of the Vulkan bindings.
func nullTerminated(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		if !strings.HasSuffix(name, "\x00") {
			name += "\x00"
		}
		out[i] = name
	}
	return out
}

func (a *App) createInstance() error {
	if err := a.checkInstanceCapabilities(); err != nil {
		return err
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   title + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(a.instanceExtensions)),
		PpEnabledExtensionNames: a.instanceExtensions,
		EnabledLayerCount:       uint32(len(a.validationLayers)),
		PpEnabledLayerNames:     a.validationLayers,
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return fmt.Errorf("failed to create Vulkan instance: %w", err)
	}

	a.instance = instance

	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("failed to init instance procedures: %w", err)
	}

	return nil
}

// checkInstanceCapabilities makes sure every required instance extension and
// layer is available. All missing names are reported together in a single
// error.
func (a *App) checkInstanceCapabilities() error {
	var extensionCount uint32
	res := vk.EnumerateInstanceExtensionProperties("", &extensionCount, nil)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to count instance extensions: %w", err)
	}

	availableExtensions := make([]vk.ExtensionProperties, extensionCount)
	res = vk.EnumerateInstanceExtensionProperties("", &extensionCount,
		availableExtensions)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to enumerate instance extensions: %w", err)
	}

	availableExtensionNames := make([]string, 0, extensionCount)
	for _, extension := range availableExtensions {
		extension.Deref()
		availableExtensionNames = append(
			availableExtensionNames,
			vk.ToString(extension.ExtensionName[:]),
		)
	}

	var layerCount uint32
	res = vk.EnumerateInstanceLayerProperties(&layerCount, nil)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to count instance layers: %w", err)
	}

	availableLayers := make([]vk.LayerProperties, layerCount)
	res = vk.EnumerateInstanceLayerProperties(&layerCount, availableLayers)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to enumerate instance layers: %w", err)
	}

	availableLayerNames := make([]string, 0, layerCount)
	for _, layer := range availableLayers {
		layer.Deref()
		availableLayerNames = append(
			availableLayerNames,
			vk.ToString(layer.LayerName[:]),
		)
	}

	missing := missingNames(a.instanceExtensions, availableExtensionNames)
	missing = append(missing, missingNames(a.validationLayers, availableLayerNames)...)

	if len(missing) > 0 {
		return &InstanceError{
			Message: "missing required instance capabilities: " +
				strings.Join(missing, ", "),
		}
	}

	return nil
}

func (a *App) createDebugCallback() error {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(
			vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit,
		),
		PfnCallback: debugReportCallback,
	}

	var callback vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(a.instance, &createInfo, nil, &callback)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to create debug report callback: %w", err)
	}
	a.debugCallback = callback

	return nil
}

// debugReportCallback logs messages coming from the validation layers. It
// never aborts the call which triggered it.
func debugReportCallback(
	flags vk.DebugReportFlags,
	objectType vk.DebugReportObjectType,
	object uint64,
	location uint,
	messageCode int32,
	pLayerPrefix string,
	pMessage string,
	pUserData unsafe.Pointer,
) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Printf("[vulkan ERROR %d] %s on layer %s",
			messageCode, pMessage, pLayerPrefix)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		log.Printf("[vulkan WARNING %d] %s on layer %s",
			messageCode, pMessage, pLayerPrefix)
	default:
		if args.debug {
			log.Printf("[vulkan INFO %d] %s on layer %s",
				messageCode, pMessage, pLayerPrefix)
		}
	}

	return vk.Bool32(vk.False)
}
