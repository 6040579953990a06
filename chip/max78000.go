// Package chip describes the MAX78000: peripheral base addresses, register
// layouts, the default clock topology and the resource inventory. It also
// provides Sim, a behavioural register model for host tests and tools.
package chip

import "maxhal/regs"

// Peripheral base addresses.
const (
	GCR   uint32 = 0x4000_0000
	LPGCR uint32 = 0x4008_0000

	GPIO0 uint32 = 0x4000_8000
	GPIO1 uint32 = 0x4000_9000
	GPIO2 uint32 = 0x4008_0400

	TMR0 uint32 = 0x4001_0000 // TMR1..3 follow at 0x1000 strides
	TMR4 uint32 = 0x4008_0C00
	TMR5 uint32 = 0x4008_1000

	UART0 uint32 = 0x4004_2000 // UART1..2 follow at 0x1000 strides
	UART3 uint32 = 0x4008_1400

	I2C0 uint32 = 0x4001_D000 // I2C1..2 follow at 0x1000 strides

	TRNG uint32 = 0x4004_D000
	FLC  uint32 = 0x4002_9000
	ICC0 uint32 = 0x4002_A000
)

// Flash geometry.
const (
	FlashBase      uint32 = 0x1000_0000
	FlashSize      uint32 = 0x0008_0000
	FlashPageSize  uint32 = 0x2000
	FlashPageCount uint32 = FlashSize / FlashPageSize
)

// Instance counts.
const (
	NumPorts  = 3
	NumTimers = 6
	NumUARTs  = 4
	NumI2C    = 3
)

// PinsPerPort is the number of bonded-out pins of each port.
var PinsPerPort = [NumPorts]uint8{31, 10, 8}

func GPIOBase(port uint8) uint32 {
	switch port {
	case 0:
		return GPIO0
	case 1:
		return GPIO1
	default:
		return GPIO2
	}
}

func TimerBase(n uint8) uint32 {
	switch {
	case n < 4:
		return TMR0 + uint32(n)*0x1000
	case n == 4:
		return TMR4
	default:
		return TMR5
	}
}

func UARTBase(n uint8) uint32 {
	if n < 3 {
		return UART0 + uint32(n)*0x1000
	}
	return UART3
}

func I2CBase(n uint8) uint32 { return I2C0 + uint32(n)*0x1000 }

// GCR register offsets.
const (
	GCRRst0     uint32 = 0x04
	GCRClkCtrl  uint32 = 0x08
	GCRPclkDis0 uint32 = 0x24
	GCRRst1     uint32 = 0x44
	GCRPclkDis1 uint32 = 0x48

	LPGCRRst     uint32 = 0x08
	LPGCRPclkDis uint32 = 0x0C
)

// CLKCTRL fields.
var (
	SysClkDiv   = regs.Field{Addr: GCR + GCRClkCtrl, Shift: 6, Width: 3}
	SysClkSel   = regs.Field{Addr: GCR + GCRClkCtrl, Shift: 9, Width: 3}
	SysClkReady = regs.Bit(GCR+GCRClkCtrl, 13)
	ERTCOEnable = regs.Bit(GCR+GCRClkCtrl, 17)
	ISOEnable   = regs.Bit(GCR+GCRClkCtrl, 18)
	IPOEnable   = regs.Bit(GCR+GCRClkCtrl, 19)
	ERTCOReady  = regs.Bit(GCR+GCRClkCtrl, 25)
	ISOReady    = regs.Bit(GCR+GCRClkCtrl, 26)
	IPOReady    = regs.Bit(GCR+GCRClkCtrl, 27)
	IBROReady   = regs.Bit(GCR+GCRClkCtrl, 28)
	INROReady   = regs.Bit(GCR+GCRClkCtrl, 29)
)

// SYSCLK_SEL codes.
const (
	SelISO   uint32 = 0
	SelINRO  uint32 = 3
	SelIPO   uint32 = 4
	SelIBRO  uint32 = 5
	SelERTCO uint32 = 6
)

// GPIO register offsets. EN0, OUTEN, OUT, EN1 and EN2 have write-1-to-set
// and write-1-to-clear aliases at +4 and +8.
const (
	GPIOEn0      uint32 = 0x00
	GPIOOutEn    uint32 = 0x0C
	GPIOOut      uint32 = 0x18
	GPIOIn       uint32 = 0x24
	GPIOInEn     uint32 = 0x30
	GPIOPadCtrl0 uint32 = 0x60 // pull-up enable
	GPIOPadCtrl1 uint32 = 0x64 // pull-down enable
	GPIOEn1      uint32 = 0x68
	GPIOEn2      uint32 = 0x74
	GPIODS0      uint32 = 0xB0
	GPIODS1      uint32 = 0xB4
	GPIOPS       uint32 = 0xB8 // 1 selects the weak pull
	GPIOVSSel    uint32 = 0xC0 // 1 selects VDDIOH

	GPIOSet uint32 = 0x04
	GPIOClr uint32 = 0x08
)

// Timer register offsets and fields (32-bit mode, half A).
const (
	TMRCnt   uint32 = 0x00
	TMRCmp   uint32 = 0x04
	TMRPwm   uint32 = 0x08
	TMRIntFl uint32 = 0x0C
	TMRCtrl0 uint32 = 0x10
	TMRCtrl1 uint32 = 0x1C

	TMRModeShift   = 0
	TMRClkDivShift = 4
	TMRPolBit      = 8
	TMRClkEnBit    = 14
	TMREnBit       = 15

	TMRCtrl1ClkEnBit  = 2
	TMRCtrl1ClkRdyBit = 3
	TMRCtrl1OutEnBit  = 13
	TMRCtrl1Cascade   = 31

	TMRIrqA = 1 << 0
)

// Timer modes.
const (
	TMRModeOneShot    uint32 = 0
	TMRModeContinuous uint32 = 1
	TMRModePWM        uint32 = 3
)

// UART register offsets and fields.
const (
	UARTCtrl   uint32 = 0x00
	UARTStatus uint32 = 0x04
	UARTIntFl  uint32 = 0x0C
	UARTClkDiv uint32 = 0x10
	UARTOsr    uint32 = 0x14
	UARTFifo   uint32 = 0x20

	UARTParEn      = 1 << 4
	UARTParOdd     = 1 << 5
	UARTParMark    = 1 << 6
	UARTTxFlush    = 1 << 8
	UARTRxFlush    = 1 << 9
	UARTCharShift  = 10
	UARTStop2      = 1 << 12
	UARTBclkEn     = 1 << 15
	UARTBclkShift  = 16
	UARTBclkRdyBit = 19
	UARTBclkRdy    = 1 << UARTBclkRdyBit
	UARTBclkPCLK   = 0
	UARTBclkIBRO   = 2
	UARTStTxBusy   = 1 << 0
	UARTStRxEmpty  = 1 << 4
	UARTStRxFull   = 1 << 5
	UARTStTxEmpty  = 1 << 6
	UARTStTxFull   = 1 << 7
	UARTFifoDepth  = 8
	UARTClkDivMask = 0xFFFFF
)

// I2C register offsets and fields.
const (
	I2CCtrl    uint32 = 0x00
	I2CStatus  uint32 = 0x04
	I2CIntFl0  uint32 = 0x08
	I2CRxCtrl1 uint32 = 0x20
	I2CFifo    uint32 = 0x2C
	I2CMstCtrl uint32 = 0x30
	I2CClkLo   uint32 = 0x34
	I2CClkHi   uint32 = 0x38

	I2CEn         = 1 << 0
	I2CMstMode    = 1 << 1
	I2CStart      = 1 << 0
	I2CRestart    = 1 << 1
	I2CStop       = 1 << 2
	I2CDoneBit    = 0
	I2CDone       = 1 << I2CDoneBit
	I2CAddrNack   = 1 << 10
	I2CDataNack   = 1 << 11
	I2CRxEmptyBit = 1
	I2CRxEmpty    = 1 << I2CRxEmptyBit
	I2CTxFullBit  = 4
	I2CTxFull     = 1 << I2CTxFullBit
	I2CClkMax     = 0x1FF
	I2CFifoDepth  = 8
)

// TRNG register offsets.
const (
	TRNGCtrl   uint32 = 0x00
	TRNGStatus uint32 = 0x04
	TRNGData   uint32 = 0x08

	TRNGReady = 1 << 0
)

// FLC register offsets and fields.
const (
	FLCAddr   uint32 = 0x00
	FLCClkDiv uint32 = 0x04
	FLCCtrl   uint32 = 0x08
	FLCIntr   uint32 = 0x24
	FLCData0  uint32 = 0x30
	FLCWelr0  uint32 = 0x80
	FLCWelr1  uint32 = 0x88

	FLCWrite       = 1 << 0
	FLCPageErase   = 1 << 2
	FLCEraseShift  = 8
	FLCErasePage   = 0x55
	FLCPending     = 1 << 24
	FLCUnlockShift = 28
	FLCUnlocked    = 0x2
	FLCLocked      = 0x3
	FLCIntrDone    = 1 << 0
	FLCIntrAF      = 1 << 1
)

// ICC register offsets.
const (
	ICCCtrl       uint32 = 0x100
	ICCInvalidate uint32 = 0x700

	ICCEnable   = 1 << 0
	ICCReadyBit = 16
	ICCReady    = 1 << ICCReadyBit
)
