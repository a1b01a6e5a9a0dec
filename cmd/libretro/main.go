package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emss/adapter"
)

// The video core takes no input, so no retropad buttons are mapped.
func init() {
	libretro.RegisterFactory(&adapter.Factory{}, nil)
}

func main() {}
