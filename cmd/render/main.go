// cmd/render is a thin demo harness over internal/raster: given a JSON
// scene file and (optionally) a background image, it runs one forward
// render and writes the result as PNG or WebP.
package main

import (
	"flag"
	"fmt"
	"os"

	"diffraster/internal/config"
	"diffraster/internal/imageio"
	"diffraster/internal/raster"
	"diffraster/internal/scenefile"
)

func main() {
	configFile := flag.String("config", "", "Path to a render job JSON file")
	scenePath := flag.String("scene", "", "Path to a scene JSON file")
	backgroundPath := flag.String("background", "", "Path to a background image")
	outputPath := flag.String("output", "", "Output image path (PNG unless the config file sets webp)")
	width := flag.Int("width", 0, "Image width in pixels (default 256)")
	height := flag.Int("height", 0, "Image height in pixels (default 256)")
	sigma := flag.Float64("sigma", 0, "Silhouette antialiasing half-width in pixels")
	supersample := flag.Int("supersample", 0, "Render at N× resolution and downsample (default 1)")

	flag.Parse()

	var job config.RenderJob
	if *configFile != "" {
		var err error
		job, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	job.Resolve(config.Flags{
		ScenePath:      *scenePath,
		BackgroundPath: *backgroundPath,
		OutputPath:     *outputPath,
		Width:          *width,
		Height:         *height,
		Sigma:          *sigma,
		Supersample:    *supersample,
	})

	if job.ScenePath == "" {
		fmt.Fprintln(os.Stderr, "Error: no scene file given. Use -scene or -config.")
		os.Exit(1)
	}

	scene, err := scenefile.Load(job.ScenePath, job.BackgroundPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		os.Exit(1)
	}

	renderW := job.Width * job.Supersample
	renderH := job.Height * job.Supersample

	img := raster.NewImage(renderH, renderW, scene.NumColors)
	depth := raster.NewDepthBuffer(renderH, renderW)

	if err := raster.RenderForward(scene, img, depth, job.Sigma, false, nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}

	if job.Supersample > 1 {
		img, err = imageio.Downsample(img, job.Width, job.Height)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error downsampling: %v\n", err)
			os.Exit(1)
		}
	}

	if job.WebP {
		err = imageio.SaveWebP(job.OutputPath, img)
	} else {
		err = imageio.SavePNG(job.OutputPath, img)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving %s: %v\n", job.OutputPath, err)
		os.Exit(1)
	}

	fmt.Printf("Rendered %dx%d -> %s\n", job.Width, job.Height, job.OutputPath)
}
