// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package collider

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/kerr"
)

var magic = [6]byte{'c', 'o', 'l', 'i', 'd', 0}

const version = uint16(2)

// ExportBuffer writes c's triangle, AABB and node arrays to
// w, preceded by the magic/version/count header. c must not
// need a rebuild.
func (c *Collider) ExportBuffer(w io.Writer) error {
	if c.dirty {
		return ErrInvalidState
	}
	hdr := struct {
		Magic   [6]byte
		Version uint16
		NTri    uint32
		NNode   uint32
		Dirty   uint8
		_       [3]byte
	}{
		Magic:   magic,
		Version: version,
		NTri:    uint32(len(c.tris)),
		NNode:   uint32(len(c.nodes)),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.tris); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.boxes); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, c.nodes)
}

// ImportBuffer replaces c's contents with the collider
// serialized in r by ExportBuffer. It returns an error if the
// magic or version does not match.
func (c *Collider) ImportBuffer(r io.Reader) error {
	var hdr struct {
		Magic   [6]byte
		Version uint16
		NTri    uint32
		NNode   uint32
		Dirty   uint8
		_       [3]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return kerr.Wrap(kerr.NotEnoughData, err)
	}
	if hdr.Magic != magic {
		return kerr.Wrap(kerr.FormatError, fmt.Errorf("collider: bad magic %v", hdr.Magic))
	}
	if hdr.Version != version {
		return kerr.Wrap(kerr.FormatError, fmt.Errorf("collider: unsupported version %d", hdr.Version))
	}
	tris := make([]geom.Triangle, hdr.NTri)
	if err := binary.Read(r, binary.LittleEndian, tris); err != nil {
		return err
	}
	boxes := make([]geom.AABB, hdr.NNode)
	if err := binary.Read(r, binary.LittleEndian, boxes); err != nil {
		return err
	}
	nodes := make([]Node, hdr.NNode)
	if err := binary.Read(r, binary.LittleEndian, nodes); err != nil {
		return err
	}
	c.tris = tris
	c.boxes = boxes
	c.nodes = nodes
	c.dirty = hdr.Dirty != 0
	return nil
}
