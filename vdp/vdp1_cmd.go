package vdp

import "github.com/user-none/emss/logger"

const (
	vdp1CmdSize = 32

	// vdp1MaxCommands bounds a single pass. Lists that loop through
	// Assign/Call chains without reaching an end bit are cut off here.
	vdp1MaxCommands = 0x4000

	vdp1FetchCycles = 16
)

// vdp1Command is one decoded 32-byte command table entry. Coordinates are
// sign-extended from 13 bits.
type vdp1Command struct {
	addr uint32
	ctrl uint16
	link uint16
	pmod uint16
	colr uint16
	srca uint16
	size uint16
	xa   int32
	ya   int32
	xb   int32
	yb   int32
	xc   int32
	yc   int32
	xd   int32
	yd   int32
	grda uint16
}

func (c *vdp1Command) opcode() uint16 {
	return c.ctrl & 0xF
}

func (c *vdp1Command) jumpMode() int {
	return int(c.ctrl&cmdJumpMask) >> 12
}

func (c *vdp1Command) zoomPoint() uint16 {
	return (c.ctrl & cmdZoomMask) >> 8
}

func (v *VDP1) fetchCommand(addr uint32) vdp1Command {
	w := func(i uint32) uint16 {
		return v.vram[((addr>>1)+i)&(vdp1VRAMWords-1)]
	}
	coord := func(i uint32) int32 {
		return sext(uint32(w(i)), 13)
	}
	return vdp1Command{
		addr: addr,
		ctrl: w(0),
		link: w(1),
		pmod: w(2),
		colr: w(3),
		srca: w(4),
		size: w(5),
		xa:   coord(6),
		ya:   coord(7),
		xb:   coord(8),
		yb:   coord(9),
		xc:   coord(10),
		yc:   coord(11),
		xd:   coord(12),
		yd:   coord(13),
		grda: w(14),
	}
}

// step fetches and executes one command, then follows its jump mode.
// Returns the cycles consumed.
func (v *VDP1) step() int {
	addr := v.cmdAddr & vdp1VRAMMask &^ (vdp1CmdSize - 1)
	v.copr = uint16(addr >> 3)
	cycles := vdp1FetchCycles

	cmd := v.fetchCommand(addr)
	if cmd.ctrl&cmdEnd != 0 {
		v.finishDraw()
		return cycles
	}

	v.cmdCount++
	if v.cmdCount > vdp1MaxCommands {
		logger.Logf("vdp1", "command limit reached at %05x, pass aborted", addr)
		v.finishDraw()
		return cycles
	}

	if cmd.ctrl&cmdSkip == 0 {
		switch cmd.opcode() {
		case opNormalSprite:
			cycles += v.drawNormalSprite(&cmd)
		case opScaledSprite:
			cycles += v.drawScaledSprite(&cmd)
		case opDistortedSprite, opDistortedAlt:
			cycles += v.drawDistortedSprite(&cmd)
		case opPolygon:
			cycles += v.drawPolygon(&cmd)
		case opPolyline, opPolylineAlt:
			cycles += v.drawPolyline(&cmd)
		case opLine:
			cycles += v.drawLine(&cmd)
		case opUserClip, opUserClipAlt:
			v.userClip = [4]int32{cmd.xa, cmd.ya, cmd.xc, cmd.yc}
		case opSystemClip:
			v.sysClipX = cmd.xc
			v.sysClipY = cmd.yc
		case opLocalCoord:
			v.localX = cmd.xa
			v.localY = cmd.ya
		default:
			logger.Logf("vdp1", "bad opcode %x at %05x, pass aborted", cmd.opcode(), addr)
			v.finishDraw()
			return cycles
		}
		v.lopr = uint16(addr >> 3)
	}

	next := addr + vdp1CmdSize
	link := uint32(cmd.link&^3) << 3
	switch cmd.jumpMode() {
	case jumpAssign:
		if link == addr {
			logger.Logf("vdp1", "self jump at %05x, pass aborted", addr)
			v.finishDraw()
			return cycles
		}
		next = link
	case jumpCall:
		if link == addr {
			logger.Logf("vdp1", "self call at %05x, pass aborted", addr)
			v.finishDraw()
			return cycles
		}
		if !v.retValid {
			v.retAddr = addr + vdp1CmdSize
			v.retValid = true
		}
		next = link
	case jumpReturn:
		if v.retValid {
			next = v.retAddr
			v.retValid = false
		}
	}
	v.cmdAddr = next & vdp1VRAMMask
	return cycles
}
