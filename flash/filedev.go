package flash

import (
	"fmt"
	"os"

	"github.com/arloliu/stampdb/errs"
)

// DefaultFileSize is the image size used when a backing file does not exist
// yet: 4 MiB, the capacity of the usual W25Q32 part.
const DefaultFileSize = 4 * 1024 * 1024

// FileDevice is a NOR flash simulator persisted to a single image file. It
// reloads the image from disk on every Read so that external mutation of the
// file (tests truncating a header, tools patching pages) is observed, and it
// rewrites the file after every erase and program.
type FileDevice struct {
	path string
	mem  []byte
}

var _ Device = (*FileDevice)(nil)

// OpenFileDevice opens or creates the image at path. A missing or short file
// is extended with erased (0xFF) bytes to size, which must be a multiple of
// the 4 KiB erase unit; pass 0 to use DefaultFileSize.
func OpenFileDevice(path string, size uint32) (*FileDevice, error) {
	if size == 0 {
		size = DefaultFileSize
	}
	if size%EraseBytes != 0 {
		return nil, fmt.Errorf("flash: image size %d: %w", size, errs.ErrUnalignedAddress)
	}

	d := &FileDevice{path: path, mem: make([]byte, size)}
	if err := d.reload(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *FileDevice) reload() error {
	for i := range d.mem {
		d.mem[i] = 0xFF
	}

	data, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("flash: read image %s: %w", d.path, err)
	}

	copy(d.mem, data)

	return nil
}

func (d *FileDevice) persist() error {
	if err := os.WriteFile(d.path, d.mem, 0o644); err != nil {
		return fmt.Errorf("flash: persist image %s: %w", d.path, err)
	}

	return nil
}

// Read refreshes the in-memory view from disk and copies len(dst) bytes at
// addr into dst.
func (d *FileDevice) Read(addr uint32, dst []byte) error {
	if err := d.reload(); err != nil {
		return err
	}
	if int(addr)+len(dst) > len(d.mem) {
		return errs.ErrOutOfBounds
	}

	copy(dst, d.mem[addr:int(addr)+len(dst)])

	return nil
}

// Erase4K fills the sector at addr with 0xFF and persists the image.
func (d *FileDevice) Erase4K(addr uint32) error {
	if addr%EraseBytes != 0 {
		return errs.ErrUnalignedAddress
	}
	if int(addr)+EraseBytes > len(d.mem) {
		return errs.ErrOutOfBounds
	}

	for i := 0; i < EraseBytes; i++ {
		d.mem[addr+uint32(i)] = 0xFF
	}

	return d.persist()
}

// Program256 ANDs src into the page at addr and persists the image.
func (d *FileDevice) Program256(addr uint32, src []byte) error {
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

	return d.persist()
}

// SizeBytes returns the image size.
func (d *FileDevice) SizeBytes() uint32 {
	return uint32(len(d.mem))
}
