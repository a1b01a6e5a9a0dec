package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/emss/cli"
	"github.com/user-none/emss/logger"
	"github.com/user-none/emss/vdp"
)

func main() {
	statePath := flag.String("state", "", "path to a video save state to load")
	regionFlag := flag.String("region", "ntsc", "region: ntsc or pal")
	threaded := flag.Bool("threaded", true, "render scanlines on a separate goroutine")
	vdp1Thread := flag.Bool("vdp1-thread", false, "run VDP1 command lists on the render goroutine")
	deinterlace := flag.Bool("deinterlace", false, "render both fields of double-density interlace")
	mesh := flag.Bool("transparent-mesh", false, "blend mesh primitives instead of dithering")
	frames := flag.Int("frames", 0, "run headless for this many frames and dump PNGs")
	outDir := flag.String("out", ".", "directory for PNG dumps and snapshots")
	saveOnExit := flag.String("save", "", "write the video state here on exit")
	verbose := flag.Bool("v", false, "echo the video log to stderr")
	flag.Parse()

	if *verbose {
		logger.SetEcho(os.Stderr)
	}

	var region vdp.Region
	switch strings.ToLower(*regionFlag) {
	case "ntsc":
		region = vdp.RegionNTSC
	case "pal":
		region = vdp.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use ntsc or pal)", *regionFlag)
	}

	session := cli.NewSession(vdp.Config{
		Region:             region,
		Threaded:           *threaded,
		VDP1OnRenderThread: *vdp1Thread,
		Deinterlace:        *deinterlace,
		TransparentMesh:    *mesh,
	})
	defer session.Close()

	if *statePath != "" {
		if err := session.LoadStateFile(*statePath); err != nil {
			log.Fatalf("Failed to load state: %v", err)
		}
	}

	defer func() {
		if *saveOnExit != "" {
			if err := session.SaveStateFile(*saveOnExit); err != nil {
				log.Printf("Failed to save state: %v", err)
			}
		}
	}()

	if *frames > 0 {
		if err := cli.DumpFrames(session, *frames, *outDir); err != nil {
			log.Fatalf("Failed to dump frames: %v", err)
		}
		return
	}

	ebiten.SetWindowSize(640, 448)
	ebiten.SetWindowTitle(cli.Title(session, region))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(320, 224, -1, -1)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(session, region, *outDir)
	defer runner.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
