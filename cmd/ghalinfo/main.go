// Command ghalinfo opens a device with validation enabled and prints the
// capability negotiation results: selected GPU, API version, queue family,
// and the device extension list the Config resolved to. It exists to
// exercise device capability negotiation as a runnable artifact, the way
// several of the retrieved example repos ship a small diagnostic binary
// alongside their library.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/andewx/ghal"
)

func main() {
	validation := flag.Bool("validation", true, "enable VK_LAYER_KHRONOS_validation")
	rayTracing := flag.Bool("raytracing", false, "request ray-tracing device extensions")
	sparse := flag.Bool("sparse", false, "request sparse-binding device extensions")
	flag.Parse()

	cfg := ghal.NewConfig().
		WithValidation(*validation).
		WithRayTracing(*rayTracing).
		WithSparse(*sparse)

	device, err := ghal.OpenDevice("ghalinfo", cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghalinfo: opening device: %v\n", err)
		os.Exit(1)
	}
	defer device.Destroy()

	major, minor, patch := device.APIVersion()
	fmt.Printf("GPU:              %s\n", device.GPUName())
	fmt.Printf("API version:      %d.%d.%d\n", major, minor, patch)
	fmt.Printf("Graphics queue:   family %d\n", device.GraphicsQueueFamily())
	fmt.Printf("Buffered frames:  %d\n", ghal.BufferedFrameCount)

	fmt.Println("Device extensions:")
	for _, ext := range device.EnabledExtensions() {
		fmt.Printf("  %s\n", ext)
	}
}
