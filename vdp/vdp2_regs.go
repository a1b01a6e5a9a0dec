package vdp

// VDP2 register byte offsets within the 0x120 byte register window.
const (
	regTVMD   = 0x000
	regEXTEN  = 0x002
	regTVSTAT = 0x004
	regVRSIZE = 0x006
	regHCNT   = 0x008
	regVCNT   = 0x00A
	regRAMCTL = 0x00E
	regCYCA0L = 0x010
	regCYCA0U = 0x012
	regCYCA1L = 0x014
	regCYCA1U = 0x016
	regCYCB0L = 0x018
	regCYCB0U = 0x01A
	regCYCB1L = 0x01C
	regCYCB1U = 0x01E
	regBGON   = 0x020
	regMZCTL  = 0x022
	regSFSEL  = 0x024
	regSFCODE = 0x026
	regCHCTLA = 0x028
	regCHCTLB = 0x02A
	regBMPNA  = 0x02C
	regBMPNB  = 0x02E
	regPNCN0  = 0x030 // PNCN0-3 at 0x30, 0x32, 0x34, 0x36
	regPNCR   = 0x038
	regPLSZ   = 0x03A
	regMPOFN  = 0x03C
	regMPOFR  = 0x03E
	regMPABN0 = 0x040 // NBG map planes, two registers per layer
	regMPABRA = 0x050 // RBG0 parameter A planes A-P
	regMPABRB = 0x060 // RBG0 parameter B planes A-P
	regSCXIN0 = 0x070
	regSCXIN1 = 0x080
	regSCXN2  = 0x090
	regSCYN2  = 0x092
	regSCXN3  = 0x094
	regSCYN3  = 0x096
	regZMCTL  = 0x098
	regSCRCTL = 0x09A
	regVCSTAU = 0x09C
	regVCSTAL = 0x09E
	regLSTA0U = 0x0A0
	regLSTA0L = 0x0A2
	regLSTA1U = 0x0A4
	regLSTA1L = 0x0A6
	regLCTAU  = 0x0A8
	regLCTAL  = 0x0AA
	regBKTAU  = 0x0AC
	regBKTAL  = 0x0AE
	regRPMD   = 0x0B0
	regRPRCTL = 0x0B2
	regKTCTL  = 0x0B4
	regKTAOF  = 0x0B6
	regOVPNRA = 0x0B8
	regOVPNRB = 0x0BA
	regRPTAU  = 0x0BC
	regRPTAL  = 0x0BE
	regWPSX0  = 0x0C0 // WPSX0 WPSY0 WPEX0 WPEY0 WPSX1 WPSY1 WPEX1 WPEY1
	regWCTLA  = 0x0D0
	regWCTLB  = 0x0D2
	regWCTLC  = 0x0D4
	regWCTLD  = 0x0D6
	regLWTA0U = 0x0D8
	regLWTA0L = 0x0DA
	regLWTA1U = 0x0DC
	regLWTA1L = 0x0DE
	regSPCTL  = 0x0E0
	regSDCTL  = 0x0E2
	regCRAOFA = 0x0E4
	regCRAOFB = 0x0E6
	regLNCLEN = 0x0E8
	regSFPRMD = 0x0EA
	regCCCTL  = 0x0EC
	regSFCCMD = 0x0EE
	regPRISA  = 0x0F0 // PRISA-PRISD, two sprite priorities each
	regPRISB  = 0x0F2
	regPRISC  = 0x0F4
	regPRISD  = 0x0F6
	regPRINA  = 0x0F8
	regPRINB  = 0x0FA
	regPRIR   = 0x0FC
	regCCRSA  = 0x100 // CCRSA-CCRSD
	regCCRNA  = 0x108
	regCCRNB  = 0x10A
	regCCRR   = 0x10C
	regCCRLB  = 0x10E
	regCLOFEN = 0x110
	regCLOFSL = 0x112
	regCOAR   = 0x114 // COAR COAG COAB COBR COBG COBB

	vdp2RegWords = 0x90
)

// vdp2WriteMask holds the writable bits of each register. Reserved and
// status registers have a zero mask.
var vdp2WriteMask = buildVDP2WriteMask()

func buildVDP2WriteMask() [vdp2RegWords]uint16 {
	var m [vdp2RegWords]uint16
	set := func(off int, mask uint16) { m[off>>1] = mask }
	setRange := func(from, to int, mask uint16) {
		for off := from; off <= to; off += 2 {
			set(off, mask)
		}
	}

	set(regTVMD, 0x81F7)
	set(regEXTEN, 0x0303)
	set(regVRSIZE, 0x8000)
	set(regRAMCTL, 0xB3FF)
	setRange(regCYCA0L, regCYCB1U, 0xFFFF)
	set(regBGON, 0x1F3F)
	set(regMZCTL, 0xFF1F)
	set(regSFSEL, 0x001F)
	set(regSFCODE, 0xFFFF)
	set(regCHCTLA, 0x3F7F)
	set(regCHCTLB, 0x7733)
	set(regBMPNA, 0x3737)
	set(regBMPNB, 0x0037)
	setRange(regPNCN0, regPNCR, 0xC3FF)
	set(regPLSZ, 0xFFFF)
	set(regMPOFN, 0x7777)
	set(regMPOFR, 0x0077)
	setRange(regMPABN0, 0x06E, 0x3F3F)
	for _, base := range []int{regSCXIN0, regSCXIN1} {
		set(base+0x0, 0x07FF)
		set(base+0x2, 0xFF00)
		set(base+0x4, 0x07FF)
		set(base+0x6, 0xFF00)
		set(base+0x8, 0x0007)
		set(base+0xA, 0xFF00)
		set(base+0xC, 0x0007)
		set(base+0xE, 0xFF00)
	}
	setRange(regSCXN2, regSCYN3, 0x07FF)
	set(regZMCTL, 0x0303)
	set(regSCRCTL, 0x3F3F)
	for _, u := range []int{regVCSTAU, regLSTA0U, regLSTA1U, regRPTAU} {
		set(u, 0x0007)
		set(u+2, 0xFFFE)
	}
	for _, u := range []int{regLCTAU, regBKTAU} {
		set(u, 0x8007)
		set(u+2, 0xFFFF)
	}
	set(regRPMD, 0x0003)
	set(regRPRCTL, 0x0707)
	set(regKTCTL, 0x1F1F)
	set(regKTAOF, 0x0707)
	set(regOVPNRA, 0xFFFF)
	set(regOVPNRB, 0xFFFF)
	for i := 0; i < 2; i++ {
		base := regWPSX0 + i*8
		set(base+0, 0x03FF)
		set(base+2, 0x01FF)
		set(base+4, 0x03FF)
		set(base+6, 0x01FF)
	}
	setRange(regWCTLA, regWCTLD, 0xBFBF)
	for _, u := range []int{regLWTA0U, regLWTA1U} {
		set(u, 0x8007)
		set(u+2, 0xFFFE)
	}
	set(regSPCTL, 0x373F)
	set(regSDCTL, 0x013F)
	set(regCRAOFA, 0x7777)
	set(regCRAOFB, 0x0077)
	set(regLNCLEN, 0x003F)
	set(regSFPRMD, 0x03FF)
	set(regCCCTL, 0xF77F)
	set(regSFCCMD, 0x03FF)
	setRange(regPRISA, regPRISD, 0x0707)
	set(regPRINA, 0x0707)
	set(regPRINB, 0x0707)
	set(regPRIR, 0x0007)
	setRange(regCCRSA, 0x106, 0x1F1F)
	set(regCCRNA, 0x1F1F)
	set(regCCRNB, 0x1F1F)
	set(regCCRR, 0x001F)
	set(regCCRLB, 0x1F1F)
	set(regCLOFEN, 0x007F)
	set(regCLOFSL, 0x007F)
	setRange(regCOAR, 0x11E, 0x01FF)
	return m
}

// Fields of TVMD, EXTEN, TVSTAT and RAMCTL.
var (
	fDISP   = regField{regTVMD, 15, 1}
	fBDCLMD = regField{regTVMD, 8, 1}
	fLSMD   = regField{regTVMD, 6, 2}
	fVRESO  = regField{regTVMD, 4, 2}
	fHRESO  = regField{regTVMD, 0, 3}

	fEXLTEN = regField{regEXTEN, 9, 1}

	fCRKTE = regField{regRAMCTL, 15, 1}
	fCRMD  = regField{regRAMCTL, 12, 2}
)

// TVSTAT bits.
const (
	tvstatEXLTFG = 1 << 9
	tvstatVBLANK = 1 << 3
	tvstatHBLANK = 1 << 2
	tvstatODD    = 1 << 1
	tvstatPAL    = 1 << 0
)

// Interlace modes selected by TVMD LSMD.
type InterlaceMode uint8

const (
	InterlaceNone InterlaceMode = iota
	InterlaceSingle
	InterlaceDouble
)

func (m InterlaceMode) String() string {
	switch m {
	case InterlaceSingle:
		return "single"
	case InterlaceDouble:
		return "double"
	default:
		return "none"
	}
}

// interlaceMode decodes LSMD. The reserved value 1 behaves as
// non-interlaced.
func interlaceMode(raw []uint16) InterlaceMode {
	switch fLSMD.get(raw) {
	case 2:
		return InterlaceSingle
	case 3:
		return InterlaceDouble
	default:
		return InterlaceNone
	}
}

// Per-NBG field accessors. n selects NBG0-NBG3.

// bgEnabled reports whether NBGn (n 0-3) or RBG0 (n 4) / RBG1 (n 5) is on.
func bgEnabled(raw []uint16, n int) bool {
	return raw[regBGON>>1]>>uint(n)&1 != 0
}

// bgTransparentOn reports the TPON bit: palette index 0 drawn opaque.
func bgTransparentOn(raw []uint16, n int) bool {
	return raw[regBGON>>1]>>uint(8+n)&1 != 0
}

// Character control for NBG0-3 and RBG0. Returns char color count,
// bitmap enable, bitmap size and character size.
type charControl struct {
	colors  uint8 // 0:16 1:256 2:2048 3:32K 4:16M
	bitmap  bool
	bmSize  uint8
	charSz2 bool // 2x2 cells per character
}

func nbgCharControl(raw []uint16, n int) charControl {
	a := raw[regCHCTLA>>1]
	b := raw[regCHCTLB>>1]
	var cc charControl
	switch n {
	case 0:
		cc.colors = uint8(a>>4) & 7
		cc.bmSize = uint8(a>>2) & 3
		cc.bitmap = a>>1&1 != 0
		cc.charSz2 = a&1 != 0
	case 1:
		cc.colors = uint8(a>>12) & 3
		cc.bmSize = uint8(a>>10) & 3
		cc.bitmap = a>>9&1 != 0
		cc.charSz2 = a>>8&1 != 0
	case 2:
		cc.colors = uint8(b>>1) & 1
		cc.charSz2 = b&1 != 0
	case 3:
		cc.colors = uint8(b>>5) & 1
		cc.charSz2 = b>>4&1 != 0
	case 4:
		cc.colors = uint8(b>>12) & 7
		cc.bmSize = uint8(b>>10) & 1
		cc.bitmap = b>>9&1 != 0
		cc.charSz2 = b>>8&1 != 0
	}
	return cc
}

// bitmapPalette returns the bitmap palette number, special priority and
// special color calc bits for NBG0, NBG1 or RBG0 (n 4).
func bitmapPalette(raw []uint16, n int) (pal uint16, spr, scc bool) {
	var v uint16
	switch n {
	case 0:
		v = raw[regBMPNA>>1] & 0xFF
	case 1:
		v = raw[regBMPNA>>1] >> 8
	case 4:
		v = raw[regBMPNB>>1] & 0xFF
	}
	return v & 7, v>>5&1 != 0, v>>4&1 != 0
}

// patternNameControl decodes PNCN0-3 (n 0-3) and PNCR (n 4).
type patternNameControl struct {
	oneWord bool
	auxMode bool // char number supplement mode 1
	spr     bool
	scc     bool
	palSup  uint16
	charSup uint16
}

func pnControl(raw []uint16, n int) patternNameControl {
	v := raw[(regPNCN0>>1)+n]
	return patternNameControl{
		oneWord: v>>15&1 != 0,
		auxMode: v>>14&1 != 0,
		spr:     v>>9&1 != 0,
		scc:     v>>8&1 != 0,
		palSup:  v >> 5 & 7,
		charSup: v & 0x1F,
	}
}

// planeSize returns the plane width and height in pages. n 0-3 for NBG,
// 4 for RBG0 parameter A, 5 for parameter B.
func planeSize(raw []uint16, n int) (w, h int) {
	v := raw[regPLSZ>>1]
	var ps uint16
	switch {
	case n < 4:
		ps = v >> (uint(n) * 2) & 3
	case n == 4:
		ps = v >> 8 & 3
	default:
		ps = v >> 12 & 3
	}
	switch ps {
	case 0:
		return 1, 1
	case 1:
		return 2, 1
	default:
		return 2, 2
	}
}

// overflowMode returns the screen-over process for rotation parameter p.
func overflowMode(raw []uint16, p int) uint16 {
	return raw[regPLSZ>>1] >> (10 + uint(p)*4) & 3
}

// mapOffset returns the 3 bit map offset for NBGn or rotation parameter
// A/B (n 4/5).
func mapOffset(raw []uint16, n int) uint32 {
	if n < 4 {
		return uint32(raw[regMPOFN>>1]>>(uint(n)*4)) & 7
	}
	return uint32(raw[regMPOFR>>1]>>(uint(n-4)*4)) & 7
}

// mapPlane returns the 6 bit plane number for plane index i of NBGn, or for
// rotation parameter A/B (n 4/5) with i 0-15.
func mapPlane(raw []uint16, n, i int) uint32 {
	var word int
	switch {
	case n < 4:
		word = regMPABN0>>1 + n*2 + i/2
	case n == 4:
		word = regMPABRA>>1 + i/2
	default:
		word = regMPABRB>>1 + i/2
	}
	v := raw[word]
	if i&1 != 0 {
		v >>= 8
	}
	return uint32(v & 0x3F)
}

// Scroll registers for NBG0/1: 11.8 fixed point scroll and 3.8 zoom.
func nbgScrollX(raw []uint16, n int) uint32 {
	base := regSCXIN0 + n*0x10
	return uint32(raw[base>>1]&0x7FF)<<8 | uint32(raw[(base+2)>>1]>>8)
}

func nbgScrollY(raw []uint16, n int) uint32 {
	base := regSCXIN0 + n*0x10 + 4
	return uint32(raw[base>>1]&0x7FF)<<8 | uint32(raw[(base+2)>>1]>>8)
}

func nbgZoomX(raw []uint16, n int) uint32 {
	base := regSCXIN0 + n*0x10 + 8
	return uint32(raw[base>>1]&7)<<8 | uint32(raw[(base+2)>>1]>>8)
}

func nbgZoomY(raw []uint16, n int) uint32 {
	base := regSCXIN0 + n*0x10 + 0xC
	return uint32(raw[base>>1]&7)<<8 | uint32(raw[(base+2)>>1]>>8)
}

// Integer scroll for NBG2/3.
func nbgIntScroll(raw []uint16, n int) (x, y uint32) {
	base := regSCXN2 + (n-2)*4
	return uint32(raw[base>>1] & 0x7FF), uint32(raw[(base+2)>>1] & 0x7FF)
}

// scrollControl decodes the SCRCTL byte of NBG0 (n 0) or NBG1 (n 1).
type scrollControl struct {
	lineInterval uint
	lineZoom     bool
	lineY        bool
	lineX        bool
	vcell        bool
}

func nbgScrollControl(raw []uint16, n int) scrollControl {
	v := raw[regSCRCTL>>1] >> (uint(n) * 8)
	return scrollControl{
		lineInterval: 1 << (v >> 4 & 3),
		lineZoom:     v>>3&1 != 0,
		lineY:        v>>2&1 != 0,
		lineX:        v>>1&1 != 0,
		vcell:        v&1 != 0,
	}
}

// tableAddr decodes an upper/lower register pair holding a VRAM word
// address and returns the byte address.
func tableAddr(raw []uint16, upper int) uint32 {
	u := uint32(raw[upper>>1] & 7)
	l := uint32(raw[(upper+2)>>1])
	return ((u << 16) | l) << 1 & vdp2VRAMMask
}

// layerPriority returns the 3 bit priority number for a layer.
func layerPriority(raw []uint16, l layerID) uint8 {
	switch l {
	case layerNBG0:
		return uint8(raw[regPRINA>>1]) & 7
	case layerNBG1:
		return uint8(raw[regPRINA>>1]>>8) & 7
	case layerNBG2:
		return uint8(raw[regPRINB>>1]) & 7
	case layerNBG3:
		return uint8(raw[regPRINB>>1]>>8) & 7
	case layerRBG0:
		return uint8(raw[regPRIR>>1]) & 7
	}
	return 0
}

// ccRatio returns the 5 bit color calculation ratio for a background layer.
func ccRatio(raw []uint16, l layerID) uint8 {
	switch l {
	case layerNBG0:
		return uint8(raw[regCCRNA>>1]) & 0x1F
	case layerNBG1:
		return uint8(raw[regCCRNA>>1]>>8) & 0x1F
	case layerNBG2:
		return uint8(raw[regCCRNB>>1]) & 0x1F
	case layerNBG3:
		return uint8(raw[regCCRNB>>1]>>8) & 0x1F
	case layerRBG0:
		return uint8(raw[regCCRR>>1]) & 0x1F
	}
	return 0
}

// layerBit maps a layer to its bit in CCCTL, LNCLEN, SDCTL and CLOFEN,
// which all share the order NBG0 NBG1 NBG2 NBG3 RBG0 BACK SPRITE.
func layerBit(l layerID) uint {
	switch l {
	case layerNBG0:
		return 0
	case layerNBG1:
		return 1
	case layerNBG2:
		return 2
	case layerNBG3:
		return 3
	case layerRBG0:
		return 4
	case layerBack:
		return 5
	case layerSprite:
		return 6
	}
	return 15
}

// cramOffset returns the CRAM address offset for a layer (added to the
// color index as bits 10-8).
func cramOffset(raw []uint16, l layerID) uint32 {
	switch l {
	case layerNBG0:
		return uint32(raw[regCRAOFA>>1]) & 7
	case layerNBG1:
		return uint32(raw[regCRAOFA>>1]>>4) & 7
	case layerNBG2:
		return uint32(raw[regCRAOFA>>1]>>8) & 7
	case layerNBG3:
		return uint32(raw[regCRAOFA>>1]>>12) & 7
	case layerRBG0:
		return uint32(raw[regCRAOFB>>1]) & 7
	case layerSprite:
		return uint32(raw[regCRAOFB>>1]>>4) & 7
	}
	return 0
}

// Sprite control, color calculation and misc fields.
var (
	fSPCCCS  = regField{regSPCTL, 12, 2}
	fSPCCN   = regField{regSPCTL, 8, 3}
	fSPCLMD  = regField{regSPCTL, 5, 1}
	fSPWINEN = regField{regSPCTL, 4, 1}
	fSPTYPE  = regField{regSPCTL, 0, 4}

	fTPSDSL = regField{regSDCTL, 8, 1}

	fEXCCEN = regField{regCCCTL, 10, 1}
	fCCRTMD = regField{regCCCTL, 9, 1}
	fCCMD   = regField{regCCCTL, 8, 1}

	fRPMD = regField{regRPMD, 0, 2}

	fMZSZV = regField{regMZCTL, 12, 4}
	fMZSZH = regField{regMZCTL, 8, 4}

	fBKCLMD = regField{regBKTAU, 15, 1}
	fLCCLMD = regField{regLCTAU, 15, 1}
)
