// Package mmio names the memory-mapped register windows of the QEMU
// `virt` machine this kernel targets (spec.md §6): UART, CLINT, PLIC,
// VirtIO-MMIO, and the Goldfish RTC. Only base addresses and register
// offsets are named here; no driver logic lives in this package
// (spec.md §1, device drivers are out of scope for the core). Grounded
// on original_source/qor-os/src/mem/kernel.rs's identity-map call sites
// (CLINT at 0x0200_0000, UART at 0x1000_0000) and supplemented with the
// rest of the standard QEMU `virt` layout for the PLIC, VirtIO, and RTC
// windows that kernel.rs's trimmed-down identity map never reached but
// original_source/qor-os/src/drivers/* programs against.
package mmio

import "github.com/AshTS/qor/internal/page"

// UART is the NS16550a-compatible console UART window.
const (
	UARTBase = page.Addr(0x1000_0000)
	UARTSize = 0x100

	UARTRegRBR = 0x00 // receiver buffer (read)
	UARTRegTHR = 0x00 // transmitter holding (write)
	UARTRegIER = 0x01 // interrupt enable
	UARTRegFCR = 0x02 // FIFO control (write)
	UARTRegISR = 0x02 // interrupt status (read)
	UARTRegLCR = 0x03 // line control
	UARTRegMCR = 0x04 // modem control
	UARTRegLSR = 0x05 // line status
	UARTRegMSR = 0x06 // modem status
	UARTRegSCR = 0x07 // scratch
)

// CLINT is the core-local interruptor: per-hart software interrupts
// (MSIP) and the machine timer comparator/counter (MTIMECMP/MTIME).
const (
	CLINTBase = page.Addr(0x0200_0000)
	CLINTSize = 0x0001_0000

	CLINTMSIPOffset     = 0x0000
	CLINTMSIPStride     = 4
	CLINTMTimeCmpOffset = 0x4000
	CLINTMTimeCmpStride = 8
	CLINTMTimeOffset    = 0xbff8
)

// MSIP returns the byte offset of hart h's software-interrupt register
// within the CLINT window.
func MSIP(hart uint64) uint64 {
	return CLINTMSIPOffset + hart*CLINTMSIPStride
}

// MTimeCmp returns the byte offset of hart h's timer comparator
// register within the CLINT window.
func MTimeCmp(hart uint64) uint64 {
	return CLINTMTimeCmpOffset + hart*CLINTMTimeCmpStride
}

// PLIC is the platform-level interrupt controller.
const (
	PLICBase = page.Addr(0x0c00_0000)
	PLICSize = 0x0400_0000

	PLICPriorityBase      = 0x0000_0000
	PLICPendingBase       = 0x0000_1000
	PLICEnableBase        = 0x0000_2000
	PLICEnableStride      = 0x80
	PLICThresholdBase     = 0x0020_0000
	PLICThresholdStride   = 0x1000
	PLICClaimCompleteBase = 0x0020_0004
)

// VirtIO is the legacy MMIO transport window for the first VirtIO
// device slot; QEMU `virt` places up to 8 slots 0x1000 bytes apart
// starting here.
const (
	VirtIOBase   = page.Addr(0x1000_1000)
	VirtIOStride = 0x1000
	VirtIOCount  = 8

	VirtIORegMagic          = 0x000
	VirtIORegVersion        = 0x004
	VirtIORegDeviceID       = 0x008
	VirtIORegVendorID       = 0x00c
	VirtIORegHostFeatures   = 0x010
	VirtIORegGuestFeatures  = 0x020
	VirtIORegQueueSel       = 0x030
	VirtIORegQueueNumMax    = 0x034
	VirtIORegQueueNum       = 0x038
	VirtIORegQueuePFN       = 0x040
	VirtIORegQueueNotify    = 0x050
	VirtIORegInterruptStat  = 0x060
	VirtIORegInterruptAck   = 0x064
	VirtIORegStatus         = 0x070
)

// VirtIOSlot returns the base address of VirtIO device slot n.
func VirtIOSlot(n int) page.Addr {
	return VirtIOBase + page.Addr(n*VirtIOStride)
}

// RTC is the Goldfish real-time-clock device.
const (
	RTCBase = page.Addr(0x0010_1000)
	RTCSize = 0x1000

	RTCRegTimeLow  = 0x00
	RTCRegTimeHigh = 0x04
)
