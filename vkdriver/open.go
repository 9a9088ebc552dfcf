package vkdriver

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/celer/vkres"
)

// Config drives Open.
type Config struct {
	AppName    string
	EngineName string
	Version    Version
	// APIVersion is the minimum Vulkan API version, 1.0.0 when zero.
	APIVersion Version

	// Debug enables the Khronos validation layer, when installed, and routes its
	// reports to Logger.
	Debug bool

	// Extensions are additional instance extensions, such as the ones a window
	// system requires to create surfaces.
	Extensions []string

	// CreateSurface, when set, is called with the new instance and must return
	// the surface to present to. The device then needs a queue family that
	// renders and presents to it. Without it the device is compute only.
	CreateSurface func(instance vk.Instance) (vk.Surface, error)

	Logger *slog.Logger
}

// ErrNoDevice is returned when no physical device has a suitable queue family.
var ErrNoDevice = errors.New("no suitable physical device")

// Init loads the Vulkan loader with its default entry point. Window systems
// which supply their own vkGetInstanceProcAddr set it with
// vk.SetGetInstanceProcAddr and call vk.Init themselves instead.
func Init() error {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return errors.Wrap(err, "locate vulkan loader")
	}
	return errors.Wrap(vk.Init(), "init vulkan")
}

// Open creates an instance, picks the first physical device with a suitable
// queue family and creates a logical device with one queue from that family.
// The loader must already be initialized.
func Open(cfg Config) (*Device, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	instance, err := createInstance(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}

	surface := vk.NullSurface
	if cfg.CreateSurface != nil {
		surface, err = cfg.CreateSurface(instance.VKInstance)
		if err != nil {
			instance.Destroy()
			return nil, errors.Wrap(err, "create surface")
		}
	}

	cleanup := func() {
		if surface != vk.NullSurface {
			vk.DestroySurface(instance.VKInstance, surface, nil)
		}
		instance.Destroy()
	}

	physicalDevices, err := instance.PhysicalDevices()
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "list physical devices")
	}

	var pdevice *PhysicalDevice
	var family *QueueFamily
	for _, p := range physicalDevices {
		families := p.QueueFamilies()
		if surface != vk.NullSurface {
			families = families.FilterGraphicsAndPresent(surface)
		} else {
			families = families.FilterCompute()
		}
		if len(families) > 0 {
			pdevice = p
			family = families[0]
			break
		}
	}
	if pdevice == nil {
		cleanup()
		return nil, ErrNoDevice
	}

	var enabledExtensions []string
	if surface != vk.NullSurface {
		enabledExtensions = safeStrings([]string{"VK_KHR_swapchain"})
	}

	queueCreateInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: uint32(family.Index),
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}

	var deviceFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pdevice.VKPhysicalDevice, &deviceFeatures)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueCreateInfo},
		EnabledExtensionCount:   uint32(len(enabledExtensions)),
		PpEnabledExtensionNames: enabledExtensions,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	var ldevice vk.Device
	if err := vkres.Check("vkCreateDevice", vk.CreateDevice(pdevice.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice)); err != nil {
		cleanup()
		return nil, errors.Wrap(err, "create device")
	}

	var queue vk.Queue
	vk.GetDeviceQueue(ldevice, uint32(family.Index), 0, &queue)

	var ret Device
	ret.Instance = instance
	ret.PhysicalDevice = pdevice
	ret.QueueFamily = family
	ret.VKDevice = ldevice
	ret.VKQueue = queue
	ret.VKSurface = surface
	ret.memoryProperties = pdevice.VKPhysicalDeviceMemoryProperties()

	log.Info("vulkan device opened", slog.String("device", pdevice.DeviceName),
		slog.Int("queueFamily", family.Index), slog.Bool("present", surface != vk.NullSurface),
		slog.Any("heaps", DescribeMemoryHeaps(ret.memoryProperties)))

	return &ret, nil
}
