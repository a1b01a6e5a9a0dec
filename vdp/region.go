package vdp

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so callers can pass the front-end
// region type straight through.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds the clock and frame constants for a video standard.
// The system clock differs between the 320 and 352 dot modes; both give the
// same line period.
type RegionTiming struct {
	ClockHz320 int // system clock in 320/640 dot modes
	ClockHz352 int // system clock in 352/704 dot modes
	Lines      int // lines in a non-interlaced frame
	FPS        int
}

// NTSC: 263 lines, ~59.94 Hz.
var NTSCTiming = RegionTiming{
	ClockHz320: 26874100,
	ClockHz352: 28636400,
	Lines:      263,
	FPS:        60,
}

// PAL: 313 lines, 50 Hz.
var PALTiming = RegionTiming{
	ClockHz320: 26687500,
	ClockHz352: 28437500,
	Lines:      313,
	FPS:        50,
}

// GetTimingForRegion returns the timing constants for r.
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// GetTiming returns the front-end facing timing summary for r.
func GetTiming(r Region) emucore.Timing {
	t := GetTimingForRegion(r)
	return emucore.Timing{FPS: t.FPS, Scanlines: t.Lines}
}
