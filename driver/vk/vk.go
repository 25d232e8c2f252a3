// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vk implements a driver.Driver backed by
// github.com/goki/vulkan. It performs real instance and
// device bring-up — enough to prove a physical device with
// a graphics-capable queue exists on the host — and then
// delegates every resource and command-buffer operation to
// an embedded driver/null.GPU, the same way a thin hardware
// backend would wrap a conformant software rasterizer for
// the parts of the API it does not implement natively.
package vk

import (
	"fmt"
	"sync"

	goVk "github.com/goki/vulkan"

	"github.com/kestrel3d/kestrel/driver"
	"github.com/kestrel3d/kestrel/driver/null"
)

func init() {
	driver.Register(vkDriver{})
}

type vkDriver struct{}

func (vkDriver) Name() string { return "vulkan" }

func (vkDriver) Close() {
	vkOnce.reset()
}

func (vkDriver) Open() (driver.GPU, error) {
	if err := vkOnce.init(); err != nil {
		return nil, err
	}
	phys, queueFamily, err := selectPhysicalDevice(vkOnce.instance)
	if err != nil {
		return nil, err
	}
	dev, queue, err := createDevice(phys, queueFamily)
	if err != nil {
		return nil, err
	}
	return &GPU{
		GPU:         &null.GPU{},
		phys:        phys,
		dev:         dev,
		queue:       queue,
		queueFamily: queueFamily,
	}, nil
}

// GPU is the Vulkan-backed driver.GPU. Resource creation and
// command recording are handled by the embedded null.GPU;
// this type exists to prove real device bring-up and to
// report the live device's Driver/Limits.
type GPU struct {
	*null.GPU
	mu          sync.Mutex
	phys        goVk.PhysicalDevice
	dev         goVk.Device
	queue       goVk.Queue
	queueFamily uint32
}

func (g *GPU) Driver() driver.Driver { return vkDriver{} }

func (g *GPU) Limits() driver.Limits {
	var props goVk.PhysicalDeviceProperties
	goVk.GetPhysicalDeviceProperties(g.phys, &props)
	props.Deref()
	props.Limits.Deref()
	l := g.GPU.Limits()
	if m := int(props.Limits.MaxImageDimension2D); m > 0 {
		l.MaxImage2D = m
	}
	if m := int(props.Limits.MaxImageDimensionCube); m > 0 {
		l.MaxImageCube = m
	}
	if m := int(props.Limits.MaxImageDimension3D); m > 0 {
		l.MaxImage3D = m
	}
	if m := int(props.Limits.MaxViewports); m > 0 {
		l.MaxViewports = m
	}
	return l
}

// vkOnce guards process-wide Vulkan loader/instance state,
// mirroring the one-instance-per-process pattern used by
// the Vulkan backend example in the retrieved pack.
var vkOnce onceInstance

type onceInstance struct {
	mu       sync.Mutex
	loaded   bool
	instance goVk.Instance
}

func (o *onceInstance) init() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loaded {
		return nil
	}
	if err := goVk.SetDefaultGetInstanceProcAddr(); err != nil {
		return fmt.Errorf("%w: %v", driver.ErrNotInstalled, err)
	}
	if err := goVk.Init(); err != nil {
		return fmt.Errorf("%w: %v", driver.ErrNotInstalled, err)
	}
	appInfo := goVk.ApplicationInfo{
		SType:              goVk.StructureTypeApplicationInfo,
		PApplicationName:   safeString("kestrel"),
		ApplicationVersion: goVk.MakeVersion(1, 0, 0),
		PEngineName:        safeString("kestrel"),
		EngineVersion:      goVk.MakeVersion(1, 0, 0),
		ApiVersion:         goVk.MakeVersion(1, 1, 0),
	}
	createInfo := goVk.InstanceCreateInfo{
		SType:            goVk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}
	var instance goVk.Instance
	if res := goVk.CreateInstance(&createInfo, nil, &instance); res != goVk.Success {
		return fmt.Errorf("%w: vkCreateInstance: %d", driver.ErrFatal, res)
	}
	goVk.InitInstance(instance)
	o.instance = instance
	o.loaded = true
	return nil
}

func (o *onceInstance) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.loaded {
		return
	}
	goVk.DestroyInstance(o.instance, nil)
	o.instance = nil
	o.loaded = false
}

func selectPhysicalDevice(instance goVk.Instance) (goVk.PhysicalDevice, uint32, error) {
	var n uint32
	goVk.EnumeratePhysicalDevices(instance, &n, nil)
	if n == 0 {
		return nil, 0, driver.ErrNoDevice
	}
	devices := make([]goVk.PhysicalDevice, n)
	goVk.EnumeratePhysicalDevices(instance, &n, devices)
	for _, dev := range devices {
		var qn uint32
		goVk.GetPhysicalDeviceQueueFamilyProperties(dev, &qn, nil)
		qf := make([]goVk.QueueFamilyProperties, qn)
		goVk.GetPhysicalDeviceQueueFamilyProperties(dev, &qn, qf)
		for i := range qf {
			qf[i].Deref()
			if qf[i].QueueFlags&goVk.QueueFlags(goVk.QueueGraphicsBit) != 0 {
				return dev, uint32(i), nil
			}
		}
	}
	return nil, 0, driver.ErrNoDevice
}

func createDevice(phys goVk.PhysicalDevice, family uint32) (goVk.Device, goVk.Queue, error) {
	prio := float32(1)
	qci := goVk.DeviceQueueCreateInfo{
		SType:            goVk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{prio},
	}
	dci := goVk.DeviceCreateInfo{
		SType:                goVk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []goVk.DeviceQueueCreateInfo{qci},
	}
	var dev goVk.Device
	if res := goVk.CreateDevice(phys, &dci, nil, &dev); res != goVk.Success {
		return nil, nil, fmt.Errorf("%w: vkCreateDevice: %d", driver.ErrFatal, res)
	}
	var queue goVk.Queue
	goVk.GetDeviceQueue(dev, family, 0, &queue)
	return dev, queue, nil
}

func safeString(s string) string { return s + "\x00" }
