// Package flash defines the NOR flash capability the storage core runs on,
// plus two simulators: an in-RAM device for tests and a file-backed device
// for host tooling.
//
// The contract mirrors QSPI NOR parts: reads of arbitrary aligned length,
// 4 KiB erases that set bytes to 0xFF, and 256-byte page programs that can
// only clear bits (the device ANDs the new image into the existing page).
// Repeated programs of the same page are legal as long as every bit moves
// only 1→0; the storage core leans on this for its header-last commit.
package flash

const (
	// EraseBytes is the erase unit; erase addresses must be multiples of it.
	EraseBytes = 4096
	// ProgramBytes is the program unit; program addresses must be multiples
	// of it and the source image must be exactly this long.
	ProgramBytes = 256
)

// Device is the flash capability supplied by the embedding environment. The
// storage core owns the device's whole address space for its lifetime.
type Device interface {
	// Read copies len(dst) bytes starting at addr into dst. It must reflect
	// all prior successful programs and erases.
	Read(addr uint32, dst []byte) error

	// Erase4K sets the 4096 bytes at addr (4 KiB aligned) to 0xFF.
	Erase4K(addr uint32) error

	// Program256 ANDs the 256-byte src image into the page at addr (256 B
	// aligned); bits move only from 1 to 0.
	Program256(addr uint32, src []byte) error

	// SizeBytes returns the total addressable size, a multiple of 4096.
	SizeBytes() uint32
}
