package chip

import (
	"maxhal/clock"
	"maxhal/regs"
)

// Oscillators.
const (
	IPO   clock.Source = "ipo"
	ISO   clock.Source = "iso"
	IBRO  clock.Source = "ibro"
	INRO  clock.Source = "inro"
	ERTCO clock.Source = "ertco"
)

// Domains.
const (
	SysClk clock.Domain = "sys_clk"
	PClk   clock.Domain = "pclk"
)

// Oscillator frequencies.
const (
	IPOHz   = 100 * clock.MHz
	ISOHz   = 60 * clock.MHz
	IBROHz  = 7_372_800
	INROHz  = 8 * clock.KHz
	ERTCOHz = 32_768
)

type gateBits struct {
	name   string
	disReg uint32
	disBit uint8
	rstReg uint32
	rstBit uint8
	domain clock.Domain
}

var sysClkCodes = map[clock.Source]uint32{
	ISO:   SelISO,
	INRO:  SelINRO,
	IPO:   SelIPO,
	IBRO:  SelIBRO,
	ERTCO: SelERTCO,
}

func gcr(off uint32) uint32   { return GCR + off }
func lpgcr(off uint32) uint32 { return LPGCR + off }

var gateTable = []gateBits{
	{"gpio0", gcr(GCRPclkDis0), 0, gcr(GCRRst0), 2, PClk},
	{"gpio1", gcr(GCRPclkDis0), 1, gcr(GCRRst0), 3, PClk},
	{"gpio2", lpgcr(LPGCRPclkDis), 0, lpgcr(LPGCRRst), 0, PClk},
	{"dma", gcr(GCRPclkDis0), 5, gcr(GCRRst0), 0, PClk},
	{"spi1", gcr(GCRPclkDis0), 6, gcr(GCRRst0), 13, PClk},
	{"uart0", gcr(GCRPclkDis0), 9, gcr(GCRRst0), 11, PClk},
	{"uart1", gcr(GCRPclkDis0), 10, gcr(GCRRst0), 12, PClk},
	{"i2c0", gcr(GCRPclkDis0), 13, gcr(GCRRst0), 16, PClk},
	{"tmr0", gcr(GCRPclkDis0), 15, gcr(GCRRst0), 5, PClk},
	{"tmr1", gcr(GCRPclkDis0), 16, gcr(GCRRst0), 6, PClk},
	{"tmr2", gcr(GCRPclkDis0), 17, gcr(GCRRst0), 7, PClk},
	{"tmr3", gcr(GCRPclkDis0), 18, gcr(GCRRst0), 8, PClk},
	{"adc", gcr(GCRPclkDis0), 23, gcr(GCRRst0), 26, PClk},
	{"i2c1", gcr(GCRPclkDis0), 28, gcr(GCRRst1), 0, PClk},
	{"pt", gcr(GCRPclkDis0), 29, gcr(GCRRst1), 1, PClk},
	{"uart2", gcr(GCRPclkDis1), 1, gcr(GCRRst0), 28, PClk},
	{"trng", gcr(GCRPclkDis1), 2, gcr(GCRRst0), 24, PClk},
	{"smphr", gcr(GCRPclkDis1), 9, gcr(GCRRst1), 16, PClk},
	{"owm", gcr(GCRPclkDis1), 13, gcr(GCRRst1), 7, PClk},
	{"crc", gcr(GCRPclkDis1), 14, gcr(GCRRst1), 9, PClk},
	{"aes", gcr(GCRPclkDis1), 15, gcr(GCRRst1), 10, PClk},
	{"spi0", gcr(GCRPclkDis1), 16, gcr(GCRRst1), 11, PClk},
	{"i2s", gcr(GCRPclkDis1), 23, gcr(GCRRst1), 19, PClk},
	{"i2c2", gcr(GCRPclkDis1), 24, gcr(GCRRst1), 20, PClk},
	{"wdt0", gcr(GCRPclkDis1), 27, gcr(GCRRst0), 1, PClk},
	{"wdt1", lpgcr(LPGCRPclkDis), 1, lpgcr(LPGCRRst), 1, PClk},
	{"tmr4", lpgcr(LPGCRPclkDis), 4, lpgcr(LPGCRRst), 2, PClk},
	{"tmr5", lpgcr(LPGCRPclkDis), 5, lpgcr(LPGCRRst), 3, PClk},
	{"uart3", lpgcr(LPGCRPclkDis), 6, lpgcr(LPGCRRst), 4, PClk},
	{"lpcomp", lpgcr(LPGCRPclkDis), 9, lpgcr(LPGCRRst), 6, PClk},
}

// Topology returns the MAX78000 clock tree: five oscillators, sys_clk
// selectable among them with a power-of-two divider, and pclk fixed at
// sys_clk/2 feeding every peripheral gate.
func Topology() clock.Topology {
	t := clock.Topology{
		Oscillators: []clock.Oscillator{
			{Name: IPO, Hz: IPOHz, Enable: IPOEnable, Ready: IPOReady},
			{Name: ISO, Hz: ISOHz, Enable: ISOEnable, Ready: ISOReady},
			{Name: IBRO, Hz: IBROHz, Ready: IBROReady},
			{Name: INRO, Hz: INROHz, Ready: INROReady},
			{Name: ERTCO, Hz: ERTCOHz, Enable: ERTCOEnable, Ready: ERTCOReady, Unsupported: true},
		},
		Domains: []clock.DomainSpec{
			{
				Name:       SysClk,
				Sources:    []clock.Source{ISO, INRO, IPO, IBRO, ERTCO},
				MinDiv:     1,
				MaxDiv:     128,
				Pow2:       true,
				Sel:        SysClkSel,
				SelCodes:   sysClkCodes,
				Div:        SysClkDiv,
				Ready:      SysClkReady,
				Default:    ISO,
				DefaultDiv: 1,
			},
			{
				Name:    PClk,
				Sources: []clock.Source{clock.Source(SysClk)},
				MinDiv:  2,
				MaxDiv:  2,
			},
		},
	}
	for _, g := range gateTable {
		t.Gates = append(t.Gates, clock.Gate{
			Name:    g.name,
			Domain:  g.domain,
			Disable: regs.Bit(g.disReg, g.disBit),
			Reset:   regs.Bit(g.rstReg, g.rstBit),
		})
	}
	return t
}

// GateNames lists every peripheral gate name.
func GateNames() []string {
	out := make([]string, len(gateTable))
	for i, g := range gateTable {
		out[i] = g.name
	}
	return out
}
