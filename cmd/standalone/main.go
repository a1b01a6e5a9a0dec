//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/emss/adapter"
)

func main() {
	statePath := flag.String("state", "", "path to a video save state (opens UI if not provided)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	deinterlace := flag.Bool("deinterlace", false, "render both fields of double-density interlace")
	mesh := flag.Bool("transparent-mesh", false, "blend mesh sprites instead of dithering them")
	flag.Parse()

	factory := &adapter.Factory{}

	if *statePath != "" {
		options := map[string]string{
			"deinterlace":      strconv.FormatBool(*deinterlace),
			"transparent_mesh": strconv.FormatBool(*mesh),
		}
		if err := standalone.RunDirect(factory, *statePath, *regionFlag, options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
