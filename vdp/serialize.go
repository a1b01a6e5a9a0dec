package vdp

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	emucore "github.com/user-none/eblitui/api"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "EMSSVideo\x00\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + region(4) + dataCRC(4)
)

// Fixed serialization sizes per component
const (
	// vram + fb(2) + mesh(2) + regs + edsr/lopr/copr(6) +
	// drawFB/pendingSwap/pendingErase/drawing(4) + cmdAddr(4) + retAddr(4) +
	// retValid(1) + cmdCount(4) + budget(8) + sysClip(8) + userClip(16) + local(8)
	vdp1SerializeSize = vdp1VRAMSize + 2*vdp1FBSize + 2*vdp1MeshBytes + vdp1RegWords*2 + 63

	vdp2SerializeSize = vdp2RegWords*2 + vdp2VRAMSize + vdp2CRAMSize

	// hPhase(1) + vPhase(1) + line(4) + field(1) + now(8) + nextEvent(8) +
	// lineStart(8) + vblank(1) + hblank(1) + hcnt/vcnt latch(4) + exLatched(1)
	timingSerializeSize = 38

	// field(1) + line(4) + nbgY(8) + rot accumulators(48) + frameStart(1)
	frameSerializeSize = 62

	// StateSize is the total size of a video save state.
	StateSize = stateHeaderSize + vdp1SerializeSize + vdp2SerializeSize +
		timingSerializeSize + frameSerializeSize
)

var _ emucore.SaveStater = (*Video)(nil)

// stateBuf steps through a state buffer in little endian order.
type stateBuf struct {
	buf []byte
	off int
}

func (b *stateBuf) putU8(v uint8) {
	b.buf[b.off] = v
	b.off++
}

func (b *stateBuf) putBool(v bool) {
	b.putU8(boolByte(v))
}

func (b *stateBuf) putU16(v uint16) {
	binary.LittleEndian.PutUint16(b.buf[b.off:], v)
	b.off += 2
}

func (b *stateBuf) putU32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[b.off:], v)
	b.off += 4
}

func (b *stateBuf) putU64(v uint64) {
	binary.LittleEndian.PutUint64(b.buf[b.off:], v)
	b.off += 8
}

func (b *stateBuf) putWords(w []uint16) {
	for _, v := range w {
		b.putU16(v)
	}
}

func (b *stateBuf) putBytes(p []byte) {
	b.off += copy(b.buf[b.off:], p)
}

func (b *stateBuf) u8() uint8 {
	v := b.buf[b.off]
	b.off++
	return v
}

func (b *stateBuf) bool() bool {
	return b.u8() != 0
}

func (b *stateBuf) u16() uint16 {
	v := binary.LittleEndian.Uint16(b.buf[b.off:])
	b.off += 2
	return v
}

func (b *stateBuf) u32() uint32 {
	v := binary.LittleEndian.Uint32(b.buf[b.off:])
	b.off += 4
	return v
}

func (b *stateBuf) u64() uint64 {
	v := binary.LittleEndian.Uint64(b.buf[b.off:])
	b.off += 8
	return v
}

func (b *stateBuf) words(w []uint16) {
	for i := range w {
		w[i] = b.u16()
	}
}

func (b *stateBuf) bytes(p []byte) {
	b.off += copy(p, b.buf[b.off:])
}

// Serialize creates a save state and returns it as a byte slice.
func (v *Video) Serialize() ([]byte, error) {
	if v.rt != nil {
		v.rt.pull(&v.chipSet)
	}

	data := make([]byte, StateSize)
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], uint32(v.cfg.Region))

	b := &stateBuf{buf: data, off: stateHeaderSize}
	v.vdp1.serialize(b)
	v.vdp2.serialize(b)
	v.timingState.serialize(b)
	v.r.serializeFrame(b)
	if b.off != StateSize {
		return nil, errors.New("save state size mismatch")
	}

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)
	return data, nil
}

// Deserialize restores video state from a save state. Nothing is changed
// when the state is rejected.
func (v *Video) Deserialize(data []byte) error {
	if err := v.VerifyState(data); err != nil {
		return err
	}

	b := &stateBuf{buf: data, off: stateHeaderSize}
	s1 := &vdp1State{}
	s1.deserialize(b)
	s2 := &vdp2State{}
	s2.deserialize(b)
	var t timingState
	t.deserialize(b)
	f, frameStart := deserializeFrame(b)

	v.vdp1.vdp1State = *s1
	v.vdp1.meshStage = v.vdp1.meshStage[:0]
	*v.vdp2 = *s2
	v.timingState = t
	v.r.frame = f
	v.r.rot.frameStart = frameStart
	v.r.colors.rebuild(v.vdp2)
	v.r.dirty = true

	if v.rt != nil {
		v.rt.resync(&v.chipSet)
	}
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (v *Video) VerifyState(data []byte) error {
	if len(data) < StateSize {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	region := binary.LittleEndian.Uint32(data[14:18])
	if Region(region) != v.cfg.Region {
		return errors.New("save state is for a different region")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:StateSize])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// StateRegion reads the region recorded in a save state header. It
// returns false when data does not start with a video state header.
func StateRegion(data []byte) (Region, bool) {
	if len(data) < stateHeaderSize || string(data[0:12]) != stateMagic {
		return RegionNTSC, false
	}
	return Region(binary.LittleEndian.Uint32(data[14:18])), true
}

func (s *vdp1State) serialize(b *stateBuf) {
	b.putWords(s.vram[:])
	b.putWords(s.fb[0][:])
	b.putWords(s.fb[1][:])
	b.putBytes(s.mesh[0][:])
	b.putBytes(s.mesh[1][:])
	b.putWords(s.regs[:])
	b.putU16(s.edsr)
	b.putU16(s.lopr)
	b.putU16(s.copr)

	b.putU8(s.drawFB)
	b.putBool(s.pendingSwap)
	b.putBool(s.pendingErase)
	b.putBool(s.drawing)
	b.putU32(s.cmdAddr)
	b.putU32(s.retAddr)
	b.putBool(s.retValid)
	b.putU32(s.cmdCount)
	b.putU64(uint64(s.budget))

	b.putU32(uint32(s.sysClipX))
	b.putU32(uint32(s.sysClipY))
	for _, c := range s.userClip {
		b.putU32(uint32(c))
	}
	b.putU32(uint32(s.localX))
	b.putU32(uint32(s.localY))
}

func (s *vdp1State) deserialize(b *stateBuf) {
	b.words(s.vram[:])
	b.words(s.fb[0][:])
	b.words(s.fb[1][:])
	b.bytes(s.mesh[0][:])
	b.bytes(s.mesh[1][:])
	b.words(s.regs[:])
	s.edsr = b.u16()
	s.lopr = b.u16()
	s.copr = b.u16()

	s.drawFB = b.u8() & 1
	s.pendingSwap = b.bool()
	s.pendingErase = b.bool()
	s.drawing = b.bool()
	s.cmdAddr = b.u32()
	s.retAddr = b.u32()
	s.retValid = b.bool()
	s.cmdCount = b.u32()
	s.budget = int64(b.u64())

	s.sysClipX = int32(b.u32())
	s.sysClipY = int32(b.u32())
	for i := range s.userClip {
		s.userClip[i] = int32(b.u32())
	}
	s.localX = int32(b.u32())
	s.localY = int32(b.u32())
}

func (s *vdp2State) serialize(b *stateBuf) {
	b.putWords(s.regs[:])
	b.putWords(s.vram[:])
	b.putWords(s.cram[:])
}

func (s *vdp2State) deserialize(b *stateBuf) {
	b.words(s.regs[:])
	b.words(s.vram[:])
	b.words(s.cram[:])
}

func (t *timingState) serialize(b *stateBuf) {
	b.putU8(uint8(t.hPhase))
	b.putU8(uint8(t.vPhase))
	b.putU32(uint32(t.line))
	b.putU8(uint8(t.field))
	b.putU64(uint64(t.now))
	b.putU64(uint64(t.nextEvent))
	b.putU64(uint64(t.lineStart))
	b.putBool(t.vblank)
	b.putBool(t.hblank)
	b.putU16(t.hcntLatch)
	b.putU16(t.vcntLatch)
	b.putBool(t.exLatched)
}

func (t *timingState) deserialize(b *stateBuf) {
	t.hPhase = hPhase(b.u8() % uint8(numHPhases))
	t.vPhase = vPhase(min(b.u8(), uint8(vLastLine)))
	t.line = int(b.u32())
	t.field = int(b.u8() & 1)
	t.now = int64(b.u64())
	t.nextEvent = int64(b.u64())
	t.lineStart = int64(b.u64())
	t.vblank = b.bool()
	t.hblank = b.bool()
	t.hcntLatch = b.u16()
	t.vcntLatch = b.u16()
	t.exLatched = b.bool()
}

func (r *renderer) serializeFrame(b *stateBuf) {
	f := &r.frame
	b.putU8(uint8(f.field))
	b.putU32(uint32(f.line))
	b.putU32(f.nbgY[0])
	b.putU32(f.nbgY[1])
	for _, a := range f.rot {
		b.putU64(uint64(a.xst))
		b.putU64(uint64(a.yst))
		b.putU64(uint64(a.ka))
	}
	b.putBool(r.rot.frameStart)
}

func deserializeFrame(b *stateBuf) (frameState, bool) {
	var f frameState
	f.field = int(b.u8() & 1)
	f.line = int(b.u32())
	f.nbgY[0] = b.u32()
	f.nbgY[1] = b.u32()
	for i := range f.rot {
		f.rot[i].xst = int64(b.u64())
		f.rot[i].yst = int64(b.u64())
		f.rot[i].ka = int64(b.u64())
	}
	return f, b.bool()
}
