package vdp

// VDP1 register byte offsets. TVMR through ENDR are write-only; EDSR
// through MODR are read-only.
const (
	regTVMR = 0x00
	regFBCR = 0x02
	regPTMR = 0x04
	regEWDR = 0x06
	regEWLR = 0x08
	regEWRR = 0x0A
	regENDR = 0x0C
	regEDSR = 0x10
	regLOPR = 0x12
	regCOPR = 0x14
	regMODR = 0x16

	vdp1RegWords = 6 // TVMR-EWRR are latched; ENDR only triggers
	vdp1Version  = 1
)

var vdp1WriteMask = [vdp1RegWords]uint16{
	0x000F, // TVMR
	0x001F, // FBCR
	0x0003, // PTMR
	0xFFFF, // EWDR
	0x7FFF, // EWLR
	0xFFFF, // EWRR
}

var (
	fVBE = regField{regTVMR, 3, 1}
	fTVM = regField{regTVMR, 0, 3}

	fEOS = regField{regFBCR, 4, 1}
	fDIE = regField{regFBCR, 3, 1}
	fDIL = regField{regFBCR, 2, 1}
	fFCM = regField{regFBCR, 1, 1}
	fFCT = regField{regFBCR, 0, 1}

	fPTM = regField{regPTMR, 0, 2}
)

// EDSR bits.
const (
	edsrBEF = 1 << 0 // end bit fetched in the previous frame
	edsrCEF = 1 << 1 // end bit fetched in the current frame
)

// Plot trigger modes (PTMR).
const (
	ptmIdle   = 0
	ptmNow    = 1
	ptmOnSwap = 2
)

// Command table fields.
const (
	cmdEnd      = 0x8000
	cmdSkip     = 0x4000
	cmdJumpMask = 0x3000
	cmdZoomMask = 0x0F00
	cmdFlipH    = 0x0010
	cmdFlipV    = 0x0020

	pmodMSBOn     = 0x8000
	pmodHSS       = 0x1000
	pmodPreClip   = 0x0800
	pmodUserClip  = 0x0400
	pmodClipMode  = 0x0200
	pmodMesh      = 0x0100
	pmodEndCode   = 0x0080 // end codes disabled
	pmodTransDraw = 0x0040 // transparent pixels drawn
)

// Jump modes.
const (
	jumpNext = iota
	jumpAssign
	jumpCall
	jumpReturn
)

// VDP1 opcodes (low 4 bits of CMDCTRL).
const (
	opNormalSprite    = 0x0
	opScaledSprite    = 0x1
	opDistortedSprite = 0x2
	opDistortedAlt    = 0x3
	opPolygon         = 0x4
	opPolyline        = 0x5
	opLine            = 0x6
	opPolylineAlt     = 0x7
	opUserClip        = 0x8
	opSystemClip      = 0x9
	opLocalCoord      = 0xA
	opUserClipAlt     = 0xB
)
