// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kestrel3d/kestrel/kerr"
)

const magic = "cageAss\x00"

const (
	flagCompressed uint32 = 1 << iota
)

// textNameSize is the fixed width of the header's NUL-terminated
// debug name field.
const textNameSize = 64

// header is the fixed-layout on-disk asset header, immediately
// followed in the body by depCount × uint32 dependency names and then
// the compressed-or-original payload.
type header struct {
	Magic          [8]byte
	Version        uint32
	Flags          uint32
	Scheme         uint16
	_              uint16 // padding to keep the following fields 4-byte aligned
	DepCount       uint32
	CompressedSize uint32
	OriginalSize   uint32
	IntlName       uint32
	TextName       [textNameSize]byte
}

const currentVersion = 1

// decoded is the fully-validated, parsed result of reading one
// asset's on-disk representation.
type decoded struct {
	scheme   uint16
	flags    uint32
	intlName Name
	textName string
	deps     []Name
	body     io.Reader // compressed-or-original bytes, per flags
	bodySize uint32
}

// readAsset parses and validates one asset file per §4.3's on-disk
// format. Any validation or IO failure is reported as an error
// wrapped with a kerr kind (FormatError or NotEnoughData);
// the caller (the disk-IO worker) is responsible for marking the
// record's error status and skipping straight to WAIT_DEPENDENCIES,
// per the propagation policy in §7.
func readAsset(r io.Reader, schemeCount int) (decoded, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return decoded{}, kerr.Wrap(kerr.NotEnoughData, fmt.Errorf("asset: reading header: %w", err))
	}
	if !bytes.Equal(hdr.Magic[:], []byte(magic)) {
		return decoded{}, kerr.Wrap(kerr.FormatError, fmt.Errorf("asset: bad magic %q", hdr.Magic))
	}
	if hdr.Version != currentVersion {
		return decoded{}, kerr.Wrap(kerr.FormatError, fmt.Errorf("asset: unsupported version %d", hdr.Version))
	}
	if int(hdr.Scheme) >= schemeCount {
		return decoded{}, kerr.Wrap(kerr.FormatError, fmt.Errorf("asset: scheme %d out of range (have %d)", hdr.Scheme, schemeCount))
	}
	nul := bytes.IndexByte(hdr.TextName[:], 0)
	if nul < 0 {
		return decoded{}, kerr.Wrap(kerr.FormatError, fmt.Errorf("asset: text name not NUL-terminated within %d bytes", textNameSize))
	}

	deps := make([]Name, hdr.DepCount)
	for i := range deps {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return decoded{}, kerr.Wrap(kerr.NotEnoughData, fmt.Errorf("asset: reading dependency %d: %w", i, err))
		}
		deps[i] = Name(n)
	}

	size := hdr.OriginalSize
	if hdr.Flags&flagCompressed != 0 {
		size = hdr.CompressedSize
	}
	buf := make([]byte, size)
	if n, err := io.ReadFull(r, buf); err != nil {
		return decoded{}, kerr.Wrap(kerr.NotEnoughData, fmt.Errorf("asset: body truncated: read %d of %d bytes: %w", n, size, err))
	}

	return decoded{
		scheme:   hdr.Scheme,
		flags:    hdr.Flags,
		intlName: Name(hdr.IntlName),
		textName: string(hdr.TextName[:nul]),
		deps:     deps,
		body:     bytes.NewReader(buf),
		bodySize: size,
	}, nil
}

func (d decoded) compressed() bool { return d.flags&flagCompressed != 0 }
