package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

func TestBuildEmptySet(t *testing.T) {
	buf := Build(nil)

	if len(buf) != 22 {
		t.Fatalf("empty archive length = %d, want 22", len(buf))
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != endOfDirectorySignature {
		t.Errorf("end-of-directory signature = %#x, want %#x", sig, endOfDirectorySignature)
	}
	if count := binary.LittleEndian.Uint16(buf[10:12]); count != 0 {
		t.Errorf("entry count = %d, want 0", count)
	}
}

func TestBuildEndOfDirectoryRecord(t *testing.T) {
	files := schema.FileSet{
		{Path: "SKILL.md", Data: []byte("# hello\n")},
		{Path: "scripts/run.sh", Data: []byte("echo hi\n")},
		{Path: "empty.txt", Data: nil},
	}
	buf := Build(files)

	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != localHeaderSignature {
		t.Errorf("first local header signature = %#x, want %#x", sig, localHeaderSignature)
	}

	eocd := buf[len(buf)-22:]
	if sig := binary.LittleEndian.Uint32(eocd[0:4]); sig != endOfDirectorySignature {
		t.Fatalf("trailing signature = %#x, want %#x", sig, endOfDirectorySignature)
	}
	if count := binary.LittleEndian.Uint16(eocd[10:12]); int(count) != len(files) {
		t.Errorf("entry count = %d, want %d", count, len(files))
	}
	dirOffset := binary.LittleEndian.Uint32(eocd[16:20])
	dirSize := binary.LittleEndian.Uint32(eocd[12:16])
	if int(dirOffset)+int(dirSize)+22 != len(buf) {
		t.Errorf("directory offset %d + size %d + 22 != total %d", dirOffset, dirSize, len(buf))
	}
}

func TestBuildRoundTrip(t *testing.T) {
	files := schema.FileSet{
		{Path: "note.txt", Data: []byte("x")},
		{Path: "lib/util.py", Data: bytes.Repeat([]byte("data"), 256)},
	}
	buf := Build(files)

	// Every content run must appear contiguously and unmodified.
	for _, f := range files {
		if len(f.Data) > 0 && !bytes.Contains(buf, f.Data) {
			t.Errorf("content of %s not found contiguously in archive", f.Path)
		}
	}

	// The stdlib reader is the arbiter of validity.
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(r.File) != len(files) {
		t.Fatalf("reader found %d entries, want %d", len(r.File), len(files))
	}
	for i, zf := range r.File {
		if zf.Name != files[i].Path {
			t.Errorf("entry %d name = %q, want %q", i, zf.Name, files[i].Path)
		}
		if zf.Method != zip.Store {
			t.Errorf("entry %s method = %d, want store", zf.Name, zf.Method)
		}
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open %s: %v", zf.Name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", zf.Name, err)
		}
		if !bytes.Equal(got, files[i].Data) {
			t.Errorf("entry %s content mismatch", zf.Name)
		}
	}
}

func TestChecksumMatchesStdlib(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("hello, world"),
		bytes.Repeat([]byte{0xFF}, 1024),
	}
	for _, data := range cases {
		if got, want := checksum(data), crc32.ChecksumIEEE(data); got != want {
			t.Errorf("checksum(%d bytes) = %#x, want %#x", len(data), got, want)
		}
	}
}
