// Package archive packs an in-memory file set into an uncompressed ZIP
// buffer for upload to the analysis sidecar. Entries are stored, not
// deflated: bundles are small and transient, so the simpler layout wins.
package archive

import (
	"encoding/binary"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

const (
	localHeaderSignature    = 0x04034b50
	centralHeaderSignature  = 0x02014b50
	endOfDirectorySignature = 0x06054b50

	versionNeeded = 20 // 2.0, plain store entries
	methodStore   = 0
)

type entry struct {
	name   []byte
	data   []byte
	crc    uint32
	offset uint32
}

// Build lays out files as a valid ZIP archive: per entry a 30-byte local
// header followed by the literal name and content bytes, then a central
// directory record per entry referencing each local header offset, then the
// 22-byte end-of-directory record. Total function: the empty set produces a
// minimal valid empty archive.
func Build(files schema.FileSet) []byte {
	entries := make([]entry, 0, len(files))

	size := 22 // end-of-directory record
	for _, f := range files {
		size += 30 + len(f.Path) + len(f.Data) // local header + payload
		size += 46 + len(f.Path)               // central directory record
	}
	buf := make([]byte, 0, size)

	// Local headers with name and content bytes, tracking offsets as we go:
	// the central directory references them.
	for _, f := range files {
		e := entry{
			name:   []byte(f.Path),
			data:   f.Data,
			crc:    checksum(f.Data),
			offset: uint32(len(buf)),
		}

		buf = appendUint32(buf, localHeaderSignature)
		buf = appendUint16(buf, versionNeeded)
		buf = appendUint16(buf, 0) // general purpose flags
		buf = appendUint16(buf, methodStore)
		buf = appendUint16(buf, 0) // mod time
		buf = appendUint16(buf, 0) // mod date
		buf = appendUint32(buf, e.crc)
		buf = appendUint32(buf, uint32(len(e.data))) // compressed == uncompressed
		buf = appendUint32(buf, uint32(len(e.data)))
		buf = appendUint16(buf, uint16(len(e.name)))
		buf = appendUint16(buf, 0) // extra field length
		buf = append(buf, e.name...)
		buf = append(buf, e.data...)

		entries = append(entries, e)
	}

	directoryOffset := uint32(len(buf))
	for _, e := range entries {
		buf = appendUint32(buf, centralHeaderSignature)
		buf = appendUint16(buf, versionNeeded) // version made by
		buf = appendUint16(buf, versionNeeded) // version needed
		buf = appendUint16(buf, 0)             // general purpose flags
		buf = appendUint16(buf, methodStore)
		buf = appendUint16(buf, 0) // mod time
		buf = appendUint16(buf, 0) // mod date
		buf = appendUint32(buf, e.crc)
		buf = appendUint32(buf, uint32(len(e.data)))
		buf = appendUint32(buf, uint32(len(e.data)))
		buf = appendUint16(buf, uint16(len(e.name)))
		buf = appendUint16(buf, 0) // extra field length
		buf = appendUint16(buf, 0) // comment length
		buf = appendUint16(buf, 0) // disk number start
		buf = appendUint16(buf, 0) // internal attributes
		buf = appendUint32(buf, 0) // external attributes
		buf = appendUint32(buf, e.offset)
		buf = append(buf, e.name...)
	}
	directorySize := uint32(len(buf)) - directoryOffset

	buf = appendUint32(buf, endOfDirectorySignature)
	buf = appendUint16(buf, 0)                    // disk number
	buf = appendUint16(buf, 0)                    // directory start disk
	buf = appendUint16(buf, uint16(len(entries))) // entries on this disk
	buf = appendUint16(buf, uint16(len(entries))) // entries total
	buf = appendUint32(buf, directorySize)
	buf = appendUint32(buf, directoryOffset)
	buf = appendUint16(buf, 0) // comment length

	return buf
}

func appendUint16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}
