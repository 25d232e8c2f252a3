// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package anim

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/kerr"
	"github.com/kestrel3d/kestrel/linear"
)

var skeletonMagic = [6]byte{'s', 'k', 'e', 'l', 0, 0}
var animationMagic = [6]byte{'a', 'n', 'i', 'm', 0, 0}

const serialVersion = uint16(1)

const nameSize = 64

// ExportBuffer writes a Skeleton's bone array to w, one
// fixed-size record per bone (name, bind matrix, inverse
// rest matrix, parent index), preceded by a magic/version/
// count header. It follows the layout package collider's
// own ExportBuffer uses for its triangle/node arrays.
func (s *Skeleton) ExportBuffer(w io.Writer) error {
	hdr := struct {
		Magic   [6]byte
		Version uint16
		NBone   uint32
	}{skeletonMagic, serialVersion, uint32(len(s.bones))}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	for _, b := range s.bones {
		rec := boneRecord{Bind: b.Bind, InvRest: b.InvRest, Parent: int32(b.Parent)}
		copy(rec.Name[:], b.Name)
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	return nil
}

type boneRecord struct {
	Name    [nameSize]byte
	Bind    linear.M4
	InvRest linear.M4
	Parent  int32
}

// ImportSkeleton reads a Skeleton serialized by ExportBuffer
// and builds it via NewSkeleton, so the topological invariant
// is re-established regardless of on-disk order.
func ImportSkeleton(r io.Reader) (*Skeleton, error) {
	var hdr struct {
		Magic   [6]byte
		Version uint16
		NBone   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != skeletonMagic {
		return nil, kerr.Wrap(kerr.FormatError, fmt.Errorf(prefix+"bad skeleton magic %v", hdr.Magic))
	}
	if hdr.Version != serialVersion {
		return nil, kerr.Wrap(kerr.FormatError, fmt.Errorf(prefix+"unsupported skeleton version %d", hdr.Version))
	}
	bones := make([]Bone, hdr.NBone)
	for i := range bones {
		var rec boneRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, err
		}
		bones[i] = Bone{
			Name:    nulTerminated(rec.Name[:]),
			Bind:    rec.Bind,
			InvRest: rec.InvRest,
			Parent:  int(rec.Parent),
		}
	}
	return NewSkeleton(bones)
}

// ExportBuffer writes an Animation's channels to w: a header
// giving the channel count, followed by one name + three
// keyframe-curve blocks (position, rotation, scale) per
// channel.
func (a *Animation) ExportBuffer(w io.Writer) error {
	hdr := struct {
		Magic   [6]byte
		Version uint16
		NChan   uint32
	}{animationMagic, serialVersion, uint32(len(a.Channels))}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	for name, ch := range a.Channels {
		var nameBuf [nameSize]byte
		copy(nameBuf[:], name)
		if err := binary.Write(w, binary.LittleEndian, &nameBuf); err != nil {
			return err
		}
		if err := writeV3Curve(w, ch.Position); err != nil {
			return err
		}
		if err := writeQCurve(w, ch.Rotation); err != nil {
			return err
		}
		if err := writeV3Curve(w, ch.Scale); err != nil {
			return err
		}
	}
	return nil
}

// ImportAnimation reads an Animation serialized by
// ExportBuffer.
func ImportAnimation(r io.Reader) (*Animation, error) {
	var hdr struct {
		Magic   [6]byte
		Version uint16
		NChan   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != animationMagic {
		return nil, kerr.Wrap(kerr.FormatError, fmt.Errorf(prefix+"bad animation magic %v", hdr.Magic))
	}
	if hdr.Version != serialVersion {
		return nil, kerr.Wrap(kerr.FormatError, fmt.Errorf(prefix+"unsupported animation version %d", hdr.Version))
	}
	a := NewAnimation()
	for i := uint32(0); i < hdr.NChan; i++ {
		var nameBuf [nameSize]byte
		if err := binary.Read(r, binary.LittleEndian, &nameBuf); err != nil {
			return nil, err
		}
		ch := &Channel{}
		var err error
		if ch.Position, err = readV3Curve(r); err != nil {
			return nil, err
		}
		if ch.Rotation, err = readQCurve(r); err != nil {
			return nil, err
		}
		if ch.Scale, err = readV3Curve(r); err != nil {
			return nil, err
		}
		a.Channels[nulTerminated(nameBuf[:])] = ch
	}
	return a, nil
}

func writeV3Curve(w io.Writer, ks []Keyframe[geom.V3]) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ks))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, ks)
}

func readV3Curve(r io.Reader) ([]Keyframe[geom.V3], error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	ks := make([]Keyframe[geom.V3], n)
	if err := binary.Read(r, binary.LittleEndian, ks); err != nil {
		return nil, err
	}
	return ks, nil
}

func writeQCurve(w io.Writer, ks []Keyframe[linear.Q]) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ks))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, ks)
}

func readQCurve(r io.Reader) ([]Keyframe[linear.Q], error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	ks := make([]Keyframe[linear.Q], n)
	if err := binary.Read(r, binary.LittleEndian, ks); err != nil {
		return nil, err
	}
	return ks, nil
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
