package flash

import (
	"github.com/arloliu/stampdb/errs"
)

// MemDevice is an in-RAM NOR flash simulator. It enforces the same
// alignment and 1→0 programming rules as real hardware, which makes it the
// fixture of choice for power-cut and corruption tests: tests may reach into
// Bytes() to flip bits between close and reopen.
type MemDevice struct {
	mem []byte
}

var _ Device = (*MemDevice)(nil)

// NewMemDevice creates an erased (all 0xFF) device of size bytes, which must
// be a multiple of the 4 KiB erase unit.
func NewMemDevice(size uint32) *MemDevice {
	if size%EraseBytes != 0 {
		panic("flash: MemDevice size must be a multiple of 4096")
	}

	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}

	return &MemDevice{mem: mem}
}

// Read copies len(dst) bytes at addr into dst.
func (d *MemDevice) Read(addr uint32, dst []byte) error {
	if int(addr)+len(dst) > len(d.mem) {
		return errs.ErrOutOfBounds
	}

	copy(dst, d.mem[addr:int(addr)+len(dst)])

	return nil
}

// Erase4K fills the sector at addr with 0xFF.
func (d *MemDevice) Erase4K(addr uint32) error {
	if addr%EraseBytes != 0 {
		return errs.ErrUnalignedAddress
	}
	if int(addr)+EraseBytes > len(d.mem) {
		return errs.ErrOutOfBounds
	}

	for i := 0; i < EraseBytes; i++ {
		d.mem[addr+uint32(i)] = 0xFF
	}

	return nil
}

// Program256 ANDs src into the page at addr.
func (d *MemDevice) Program256(addr uint32, src []byte) error {
	if addr%ProgramBytes != 0 {
		return errs.ErrUnalignedAddress
	}
	if len(src) != ProgramBytes {
		return errs.ErrInvalidPageSize
	}
	if int(addr)+ProgramBytes > len(d.mem) {
		return errs.ErrOutOfBounds
	}

	for i := 0; i < ProgramBytes; i++ {
		d.mem[addr+uint32(i)] &= src[i]
	}

	return nil
}

// SizeBytes returns the device size.
func (d *MemDevice) SizeBytes() uint32 {
	return uint32(len(d.mem))
}

// Bytes exposes the raw image for test fixtures that inject corruption or
// truncate writes. Production code never calls it.
func (d *MemDevice) Bytes() []byte {
	return d.mem
}
