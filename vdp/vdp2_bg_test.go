package vdp

import "testing"

const white = 0x7FFF

// setupScrollNBG0 builds on setupSolidNBG0 with character 1 (index 2,
// green) placed at map column 1 of row 0 and at map column 0 of row 1, so
// horizontal and vertical offsets both show up as a color change.
func setupScrollNBG0(v *Video) {
	setupSolidNBG0(v, red)
	for a := uint32(0x20); a < 0x40; a += 2 {
		v.Write16(WindowVDP2VRAM, a, 0x2222)
	}
	v.Write16(WindowVDP2CRAM, 4, green)
	v.Write16(WindowVDP2VRAM, 0x4006, 1)
	v.Write16(WindowVDP2VRAM, 0x4102, 1)
}

// renderFieldLine is renderTestLine for a chosen interlace field.
func renderFieldLine(v *Video, field, line int) []uint32 {
	v.r.beginFrame(field)
	for l := 0; l <= line; l++ {
		v.r.drawLine(l)
	}
	return append([]uint32(nil), v.r.primary.pixels[:v.r.geom.width]...)
}

type dotCheck struct {
	dot  int
	want uint32
}

func checkDots(t *testing.T, px []uint32, checks []dotCheck) {
	t.Helper()
	for _, c := range checks {
		if px[c.dot] != c.want {
			t.Errorf("dot %d: expected 0x%06X, got 0x%06X", c.dot, c.want, px[c.dot])
		}
	}
}

func TestVDP2_VerticalCellScroll(t *testing.T) {
	tests := []struct {
		name   string
		tvmd   uint16
		mzctl  uint16
		field  int
		line   int
		col0   uint32
		checks []dotCheck
	}{
		{"column offsets", 0x8000, 0, 0, 0, 8, []dotCheck{{0, rgb555(green)}, {7, rgb555(green)}, {16, rgb555(red)}}},
		{"adds line", 0x8000, 0, 0, 1, 7, []dotCheck{{0, rgb555(green)}}},
		{"vertical mosaic", 0x8000, 0x1001, 0, 1, 7, []dotCheck{{0, rgb555(red)}}},
		{"double interlace even field", 0x80C0, 0, 0, 0, 7, []dotCheck{{0, rgb555(red)}}},
		{"double interlace odd field", 0x80C0, 0, 1, 0, 7, []dotCheck{{0, rgb555(green)}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupScrollNBG0(v)
			reg(v, regTVMD, tc.tvmd)
			reg(v, regMZCTL, tc.mzctl)
			reg(v, regSCRCTL, 0x0001)
			reg(v, regVCSTAU, 1)
			reg(v, regVCSTAL, 0x8000)
			v.Write32(WindowVDP2VRAM, 0x30000, tc.col0<<16)

			checkDots(t, renderFieldLine(v, tc.field, tc.line), tc.checks)
		})
	}
}

func TestVDP2_LineScrollTable(t *testing.T) {
	tests := []struct {
		name    string
		tvmd    uint16
		scrctl  uint16
		entries []uint32
		field   int
		line    int
		checks  []dotCheck
	}{
		{"x", 0x8000, 0x02, []uint32{0, 4 << 16}, 0, 1,
			[]dotCheck{{3, rgb555(red)}, {4, rgb555(green)}}},
		{"x first line", 0x8000, 0x02, []uint32{0, 4 << 16}, 0, 0,
			[]dotCheck{{4, rgb555(red)}, {8, rgb555(green)}}},
		{"y replaces", 0x8000, 0x04, []uint32{0, 8 << 16}, 0, 1,
			[]dotCheck{{0, rgb555(green)}, {8, rgb555(red)}}},
		{"zoom", 0x8000, 0x08, []uint32{0x200 << 8}, 0, 0,
			[]dotCheck{{3, rgb555(red)}, {4, rgb555(green)}, {8, rgb555(red)}}},
		{"x and y", 0x8000, 0x06, []uint32{0, 0, 4 << 16, 8 << 16}, 0, 1,
			[]dotCheck{{0, rgb555(green)}, {4, rgb555(red)}}},
		{"interval of two", 0x8000, 0x12, []uint32{0, 4 << 16}, 0, 1,
			[]dotCheck{{4, rgb555(red)}, {8, rgb555(green)}}},
		{"double interlace even field", 0x80C0, 0x02, []uint32{0, 4 << 16}, 0, 0,
			[]dotCheck{{4, rgb555(red)}, {8, rgb555(green)}}},
		{"double interlace odd field", 0x80C0, 0x02, []uint32{0, 4 << 16}, 1, 0,
			[]dotCheck{{3, rgb555(red)}, {4, rgb555(green)}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupScrollNBG0(v)
			reg(v, regTVMD, tc.tvmd)
			reg(v, regSCRCTL, tc.scrctl)
			reg(v, regLSTA0U, 1)
			reg(v, regLSTA0L, 0x8000)
			for i, e := range tc.entries {
				v.Write32(WindowVDP2VRAM, 0x30000+uint32(i)*4, e)
			}

			checkDots(t, renderFieldLine(v, tc.field, tc.line), tc.checks)
		})
	}
}

func TestVDP2_Mosaic(t *testing.T) {
	tests := []struct {
		name    string
		mzctl   uint16
		scrollX uint16
		scrollY uint16
		line    int
		checks  []dotCheck
	}{
		{"off", 0, 2, 0, 0, []dotCheck{{6, rgb555(green)}, {15, rgb555(red)}}},
		{"horizontal", 0x0301, 2, 0, 0, []dotCheck{{6, rgb555(red)}, {8, rgb555(green)}, {15, rgb555(green)}}},
		{"other layer only", 0x0302, 2, 0, 0, []dotCheck{{6, rgb555(green)}, {15, rgb555(red)}}},
		{"vertical off", 0, 0, 7, 1, []dotCheck{{0, rgb555(green)}}},
		{"vertical", 0x1001, 0, 7, 1, []dotCheck{{0, rgb555(red)}}},
		{"vertical next block", 0x1001, 0, 7, 2, []dotCheck{{0, rgb555(green)}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupScrollNBG0(v)
			reg(v, regMZCTL, tc.mzctl)
			reg(v, regSCXIN0, tc.scrollX)
			reg(v, regSCXIN0+4, tc.scrollY)

			checkDots(t, renderTestLine(v, tc.line), tc.checks)
		})
	}
}

func TestVDP2_AccessDelay(t *testing.T) {
	v := New(Config{}, nil, nil)
	setupScrollNBG0(v)

	// The reset cycle pattern schedules pattern name reads first.
	px := renderTestLine(v, 0)
	checkDots(t, px, []dotCheck{{8, rgb555(green)}, {16, rgb555(red)}})

	for off := uint32(regCYCA0L); off <= regCYCB1U; off += 2 {
		reg(v, off, 0xFFFF)
	}
	// T0 reads NBG0 character data, T1 its pattern names.
	reg(v, regCYCA0L, 0x40FF)
	px = renderTestLine(v, 0)
	checkDots(t, px, []dotCheck{{8, rgb555(red)}, {16, rgb555(green)}, {23, rgb555(green)}, {24, rgb555(red)}})

	// Pattern names ahead of character data: no delay.
	reg(v, regCYCA0L, 0x04FF)
	px = renderTestLine(v, 0)
	checkDots(t, px, []dotCheck{{8, rgb555(green)}, {16, rgb555(red)}})
}

func TestVDP2_PatternNames(t *testing.T) {
	tests := []struct {
		name   string
		pncn   uint16
		addr   uint32
		words  []uint16
		checks []dotCheck
	}{
		{"two word", 0, 0x4000, []uint16{0, 1},
			[]dotCheck{{0, rgb555(red)}, {4, rgb555(green)}}},
		{"two word horizontal flip", 0, 0x4000, []uint16{0x4000, 1},
			[]dotCheck{{0, rgb555(green)}, {4, rgb555(red)}}},
		{"two word vertical flip", 0, 0x4000, []uint16{0x8000, 1},
			[]dotCheck{{0, rgb555(white)}, {4, rgb555(white)}}},
		{"two word palette", 0, 0x4000, []uint16{0x0001, 1},
			[]dotCheck{{0, rgb555(blue)}}},
		{"one word", 0x8000, 0x2000, []uint16{0x0001},
			[]dotCheck{{0, rgb555(red)}, {4, rgb555(green)}}},
		{"one word horizontal flip", 0x8000, 0x2000, []uint16{0x0401},
			[]dotCheck{{0, rgb555(green)}}},
		{"one word palette", 0x8000, 0x2000, []uint16{0x1001},
			[]dotCheck{{0, rgb555(blue)}}},
		{"one word supplement", 0x8001, 0x2000, []uint16{0x0001},
			[]dotCheck{{0, rgb555(white)}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupSolidNBG0(v, red)
			// Character 1: dots 0-3 index 1, dots 4-7 index 2; its last
			// row is index 3.
			for row := uint32(0); row < 7; row++ {
				v.Write16(WindowVDP2VRAM, 0x20+row*4, 0x1111)
				v.Write16(WindowVDP2VRAM, 0x22+row*4, 0x2222)
			}
			v.Write16(WindowVDP2VRAM, 0x20+7*4, 0x3333)
			v.Write16(WindowVDP2VRAM, 0x22+7*4, 0x3333)
			// Character 0x401, reached through the supplement bits, is
			// index 3 throughout.
			for a := uint32(0x401 * 0x20); a < 0x401*0x20+0x20; a += 2 {
				v.Write16(WindowVDP2VRAM, a, 0x3333)
			}
			v.Write16(WindowVDP2CRAM, 4, green)
			v.Write16(WindowVDP2CRAM, 6, white)
			v.Write16(WindowVDP2CRAM, 17*2, blue)
			reg(v, regPNCN0, tc.pncn)
			for i, w := range tc.words {
				v.Write16(WindowVDP2VRAM, tc.addr+uint32(i)*2, w)
			}

			checkDots(t, renderTestLine(v, 0), tc.checks)
		})
	}
}

func TestVDP2_CharacterFormats(t *testing.T) {
	tests := []struct {
		name   string
		chctla uint16
		bytes  uint32
		w0, w1 uint16
		want   uint32
	}{
		{"256 colors", 0x10, 64, 0x0505, 0x0505, rgb555(green)},
		{"2048 colors", 0x20, 128, 0x0105, 0x0105, rgb555(blue)},
		{"2048 colors ignores high bits", 0x20, 128, 0xF905, 0xF905, rgb555(blue)},
		{"32K colors", 0x30, 128, 0x8000 | white, 0x8000 | white, rgb555(white)},
		{"32K colors transparent", 0x30, 128, white, white, 0},
		{"16M colors", 0x40, 256, 0x8012, 0x3456, rgb888(0x123456)},
		{"16M colors transparent", 0x40, 256, 0x0012, 0x3456, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupSolidNBG0(v, red)
			reg(v, regCHCTLA, tc.chctla)
			v.Write16(WindowVDP2CRAM, 5*2, green)
			v.Write16(WindowVDP2CRAM, 0x105*2, blue)
			for a := uint32(0); a < tc.bytes; a += 4 {
				v.Write16(WindowVDP2VRAM, a, tc.w0)
				v.Write16(WindowVDP2VRAM, a+2, tc.w1)
			}

			px := renderTestLine(v, 0)
			for _, x := range []int{0, 3, 7, 8} {
				if px[x] != tc.want {
					t.Errorf("dot %d: expected 0x%06X, got 0x%06X", x, tc.want, px[x])
				}
			}
		})
	}
}

func TestVDP2_SpecialPriority(t *testing.T) {
	tests := []struct {
		name   string
		sfprmd uint16
		w0     uint16
		sfcode uint16
		sfsel  uint16
		shown  bool
	}{
		{"screen", 0, 0, 0, 0, true},
		{"character clear", 1, 0, 0, 0, false},
		{"character set", 1, 0x2000, 0, 0, true},
		{"dot without code", 2, 0x2000, 0, 0, false},
		{"dot with code", 2, 0x2000, 0x0001, 0, true},
		{"dot with upper code", 2, 0x2000, 0x0100, 1, true},
		{"dot code from other bank", 2, 0x2000, 0x0100, 0, false},
		{"dot code without character bit", 2, 0, 0x0001, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupSolidNBG0(v, red)
			reg(v, regPRINA, 1)
			reg(v, regSFPRMD, tc.sfprmd)
			reg(v, regSFCODE, tc.sfcode)
			reg(v, regSFSEL, tc.sfsel)
			v.Write16(WindowVDP2VRAM, 0x4000, tc.w0)

			px := renderTestLine(v, 0)
			want := uint32(0)
			if tc.shown {
				want = rgb555(red)
			}
			if px[0] != want {
				t.Errorf("expected 0x%06X, got 0x%06X", want, px[0])
			}
			// The next cell has no special priority bit.
			if tc.sfprmd != 0 && px[8] != 0 {
				t.Errorf("expected the next cell hidden, got 0x%06X", px[8])
			}
		})
	}
}

func TestVDP2_SpecialColorCalculation(t *testing.T) {
	const blended = 0x7C007C
	tests := []struct {
		name   string
		sfccmd uint16
		w0     uint16
		sfcode uint16
		top    uint16
		want   uint32
	}{
		{"screen", 0, 0, 0, red, blended},
		{"character clear", 1, 0, 0, red, rgb555(red)},
		{"character set", 1, 0x1000, 0, red, blended},
		{"dot without code", 2, 0x1000, 0, red, rgb555(red)},
		{"dot with code", 2, 0x1000, 0x0001, red, blended},
		{"color msb clear", 3, 0, 0, red, rgb555(red)},
		{"color msb set", 3, 0, 0, 0x8000 | red, blended},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Config{}, nil, nil)
			setupSolidNBG0(v, tc.top)
			addSolidNBG1(v, blue, 3)
			reg(v, regPRINA, 3<<8|5)
			reg(v, regCCCTL, 0x0001)
			reg(v, regCCRNA, 16)
			reg(v, regSFCCMD, tc.sfccmd)
			reg(v, regSFCODE, tc.sfcode)
			v.Write16(WindowVDP2VRAM, 0x4000, tc.w0)

			px := renderTestLine(v, 0)
			if px[0] != tc.want {
				t.Errorf("expected 0x%06X, got 0x%06X", tc.want, px[0])
			}
		})
	}
}
