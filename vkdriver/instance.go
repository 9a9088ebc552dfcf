package vkdriver

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/celer/vkres"
)

// Version is used to specify versions of components
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion returns a Vulkan compatible version representation
func (v *Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// SupportedLayers returns the instance layers the loader offers. The loader
// must have been initialized.
func SupportedLayers() ([]string, error) {
	var instanceLayerLen uint32
	err := vkres.Check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&instanceLayerLen, nil))
	if err != nil {
		return nil, err
	}
	instanceLayer := make([]vk.LayerProperties, instanceLayerLen)
	err = vkres.Check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&instanceLayerLen, instanceLayer))
	if err != nil {
		return nil, err
	}
	layerNames := make([]string, 0)
	for _, layer := range instanceLayer {
		layer.Deref()
		layerNames = append(layerNames,
			vk.ToString(layer.LayerName[:]))
	}
	return layerNames, nil
}

// SupportedExtensions returns the instance extensions the loader offers.
func SupportedExtensions() ([]string, error) {
	var instanceExtLen uint32
	err := vkres.Check("vkEnumerateInstanceExtensionProperties", vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, nil))
	if err != nil {
		return nil, err
	}
	instanceExt := make([]vk.ExtensionProperties, instanceExtLen)
	err = vkres.Check("vkEnumerateInstanceExtensionProperties", vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, instanceExt))
	if err != nil {
		return nil, err
	}
	extNames := make([]string, 0)
	for _, ext := range instanceExt {
		ext.Deref()
		extNames = append(extNames,
			vk.ToString(ext.ExtensionName[:]))
	}
	return extNames, nil
}

//Instance is an instance of the Vulkan subsystem
type Instance struct {
	//VKInstance is the native Vulkan instance object
	VKInstance vk.Instance

	debugCallback vk.DebugReportCallback
	log           *slog.Logger
}

func createInstance(cfg Config, log *slog.Logger) (*Instance, error) {
	apiVersion := cfg.APIVersion
	if apiVersion.Major < 1 {
		apiVersion.Major = 1
	}

	var appInfo = vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         apiVersion.VKVersion(),
		ApplicationVersion: cfg.Version.VKVersion(),
		PApplicationName:   safeString(cfg.AppName),
		PEngineName:        safeString(cfg.EngineName),
	}

	extensions := append([]string{}, cfg.Extensions...)
	var layers []string

	if cfg.Debug {
		supported, err := SupportedLayers()
		if err != nil {
			return nil, errors.Wrap(err, "list layers")
		}
		for _, l := range supported {
			if l == validationLayer {
				layers = append(layers, validationLayer)
			}
		}
		if len(layers) == 0 {
			log.Warn("validation layer not available", slog.String("layer", validationLayer))
		}
		extensions = append(extensions, "VK_EXT_debug_report")
	}

	extensions = safeStrings(extensions)
	layers = safeStrings(layers)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	instance := &Instance{log: log}

	err := vkres.Check("vkCreateInstance", vk.CreateInstance(&createInfo, nil, &instance.VKInstance))
	if err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance.VKInstance); err != nil {
		vk.DestroyInstance(instance.VKInstance, nil)
		return nil, errors.Wrap(err, "init instance")
	}

	if cfg.Debug {
		if err := instance.setDebugCallback(); err != nil {
			log.Warn("debug report callback not installed", slog.Any("error", err))
		}
	}

	return instance, nil
}

const validationLayer = "VK_LAYER_KHRONOS_validation"

//PhysicalDevices returns a list of physical devices known to Vulkan
func (i *Instance) PhysicalDevices() ([]*PhysicalDevice, error) {
	var deviceCount uint32
	err := vkres.Check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, nil))
	if err != nil {
		return nil, err
	}

	if deviceCount == 0 {
		return nil, nil
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	err = vkres.Check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, devices))
	if err != nil {
		return nil, err
	}

	ret := make([]*PhysicalDevice, deviceCount)
	for i, device := range devices {
		ret[i] = &PhysicalDevice{}
		ret[i].VKPhysicalDevice = device

		vk.GetPhysicalDeviceProperties(device, &ret[i].VKPhysicalDeviceProperties)

		ret[i].VKPhysicalDeviceProperties.Deref()
		ret[i].DeviceName = vk.ToString(ret[i].VKPhysicalDeviceProperties.DeviceName[:])
	}
	return ret, nil
}

func (i *Instance) setDebugCallback() error {
	var debugCallback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(i.VKInstance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: i.debugReport,
	}, nil, &debugCallback)
	if err := vkres.Check("vkCreateDebugReportCallbackEXT", ret); err != nil {
		return err
	}
	i.debugCallback = debugCallback
	return nil
}

// debugReport forwards validation messages to the logger.
func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	attrs := []any{
		slog.String("layer", pLayerPrefix),
		slog.Int("code", int(messageCode)),
		slog.String("object", fmt.Sprintf("%d:%#x", objectType, object)),
	}

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		i.log.Error(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		i.log.Warn(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		i.log.Debug(pMessage, attrs...)
	default:
		i.log.Info(pMessage, attrs...)
	}
	return vk.Bool32(vk.False)
}

func (i *Instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.VKInstance, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.VKInstance, nil)
}
