package zev

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	// Magic is the first header field ("wZ").
	Magic uint16 = 0x775A

	// Sentinel is the constant header field ("Ev").
	Sentinel uint16 = 0x4576
)

// Record sizes in bytes.
const (
	HeaderSize  = 0x14
	EventSize   = 0x28
	ActorSize   = 0x28
	Step1Size   = 0x1C
	Step2Size   = 0x0C
	DataDefSize = 0x0C
	IntSize     = 4
	FloatSize   = 4
)

// Fixed string field widths.
const (
	EventNameLen = 0x20
	ActorNameLen = 0x20
	LongNameLen  = 0x10
	ShortNameLen = 4
)

// waitForOffset is the position of the wait pointer inside a step-part-1 record.
const waitForOffset = LongNameLen

// noWait is the wait pointer value meaning "no dependency".
const noWait int16 = -1

// readFixedString decodes a zero padded string field. A field without
// any zero byte is taken whole.
func readFixedString(field []byte) (string, bool) {
	if end := bytes.IndexByte(field, 0); end >= 0 {
		field = field[:end]
	}
	if !utf8.Valid(field) {
		return "", false
	}
	return string(field), true
}

// putFixedString writes s zero padded to the width of dst.
// Callers validate lengths first; an oversized string is a programming error.
func putFixedString(dst []byte, s string) {
	if len(s) > len(dst) {
		panic(fmt.Sprintf("zev: string %q does not fit %d byte field", s, len(dst)))
	}
	n := copy(dst, s)
	clear(dst[n:])
}

type rawHeader struct {
	Magic        uint16
	EventCount   uint16
	ActorCount   uint16
	StepCount    uint16
	Step2Count   uint16
	DataDefCount uint16
	Sentinel     uint16
	IntCount     uint16
	FloatCount   uint16
	StringBytes  uint16
}

func decodeHeader(b []byte) rawHeader {
	be := binary.BigEndian
	return rawHeader{
		Magic:        be.Uint16(b[0:]),
		EventCount:   be.Uint16(b[2:]),
		ActorCount:   be.Uint16(b[4:]),
		StepCount:    be.Uint16(b[6:]),
		Step2Count:   be.Uint16(b[8:]),
		DataDefCount: be.Uint16(b[10:]),
		Sentinel:     be.Uint16(b[12:]),
		IntCount:     be.Uint16(b[14:]),
		FloatCount:   be.Uint16(b[16:]),
		StringBytes:  be.Uint16(b[18:]),
	}
}

func (h rawHeader) put(b []byte) {
	be := binary.BigEndian
	be.PutUint16(b[0:], h.Magic)
	be.PutUint16(b[2:], h.EventCount)
	be.PutUint16(b[4:], h.ActorCount)
	be.PutUint16(b[6:], h.StepCount)
	be.PutUint16(b[8:], h.Step2Count)
	be.PutUint16(b[10:], h.DataDefCount)
	be.PutUint16(b[12:], h.Sentinel)
	be.PutUint16(b[14:], h.IntCount)
	be.PutUint16(b[16:], h.FloatCount)
	be.PutUint16(b[18:], h.StringBytes)
}

func (h rawHeader) counts() Counts {
	return Counts{
		Events:      int(h.EventCount),
		Actors:      int(h.ActorCount),
		Steps:       int(h.StepCount),
		DataDefs:    int(h.DataDefCount),
		Ints:        int(h.IntCount),
		Floats:      int(h.FloatCount),
		StringBytes: int(h.StringBytes),
	}
}

type rawEvent struct {
	Name       string
	Flag1      uint8
	Flag2      uint8
	Pad        uint16
	ActorStart uint16
	ActorCount uint16
}

func decodeEvent(b []byte) (rawEvent, bool) {
	name, ok := readFixedString(b[:EventNameLen])
	if !ok {
		return rawEvent{}, false
	}
	be := binary.BigEndian
	return rawEvent{
		Name:       name,
		Flag1:      b[0x20],
		Flag2:      b[0x21],
		Pad:        be.Uint16(b[0x22:]),
		ActorStart: be.Uint16(b[0x24:]),
		ActorCount: be.Uint16(b[0x26:]),
	}, true
}

func (r rawEvent) put(b []byte) {
	putFixedString(b[:EventNameLen], r.Name)
	be := binary.BigEndian
	b[0x20] = r.Flag1
	b[0x21] = r.Flag2
	be.PutUint16(b[0x22:], r.Pad)
	be.PutUint16(b[0x24:], r.ActorStart)
	be.PutUint16(b[0x26:], r.ActorCount)
}

type rawActor struct {
	Name      string
	Flag1     uint16
	Flag2     uint16
	StepStart uint16
	StepCount uint16
}

func decodeActor(b []byte) (rawActor, bool) {
	name, ok := readFixedString(b[:ActorNameLen])
	if !ok {
		return rawActor{}, false
	}
	be := binary.BigEndian
	return rawActor{
		Name:      name,
		Flag1:     be.Uint16(b[0x20:]),
		Flag2:     be.Uint16(b[0x22:]),
		StepStart: be.Uint16(b[0x24:]),
		StepCount: be.Uint16(b[0x26:]),
	}, true
}

func (r rawActor) put(b []byte) {
	putFixedString(b[:ActorNameLen], r.Name)
	be := binary.BigEndian
	be.PutUint16(b[0x20:], r.Flag1)
	be.PutUint16(b[0x22:], r.Flag2)
	be.PutUint16(b[0x24:], r.StepStart)
	be.PutUint16(b[0x26:], r.StepCount)
}

type rawStep1 struct {
	LongName   string
	WaitFor    int16
	ActorIndex uint16
	Flag       uint16
	Pad0       uint16
	Self       uint16
	Pad1       uint16
}

func decodeStep1(b []byte) (rawStep1, bool) {
	name, ok := readFixedString(b[:LongNameLen])
	if !ok {
		return rawStep1{}, false
	}
	be := binary.BigEndian
	return rawStep1{
		LongName:   name,
		WaitFor:    int16(be.Uint16(b[0x10:])),
		ActorIndex: be.Uint16(b[0x12:]),
		Flag:       be.Uint16(b[0x14:]),
		Pad0:       be.Uint16(b[0x16:]),
		Self:       be.Uint16(b[0x18:]),
		Pad1:       be.Uint16(b[0x1A:]),
	}, true
}

func (r rawStep1) put(b []byte) {
	putFixedString(b[:LongNameLen], r.LongName)
	be := binary.BigEndian
	be.PutUint16(b[0x10:], uint16(r.WaitFor))
	be.PutUint16(b[0x12:], r.ActorIndex)
	be.PutUint16(b[0x14:], r.Flag)
	be.PutUint16(b[0x16:], r.Pad0)
	be.PutUint16(b[0x18:], r.Self)
	be.PutUint16(b[0x1A:], r.Pad1)
}

type rawStep2 struct {
	Name         string
	Flag         uint16
	Self         uint16
	DataDefStart uint16
	DataDefCount uint16
}

func decodeStep2(b []byte) (rawStep2, bool) {
	name, ok := readFixedString(b[:ShortNameLen])
	if !ok {
		return rawStep2{}, false
	}
	be := binary.BigEndian
	return rawStep2{
		Name:         name,
		Flag:         be.Uint16(b[4:]),
		Self:         be.Uint16(b[6:]),
		DataDefStart: be.Uint16(b[8:]),
		DataDefCount: be.Uint16(b[10:]),
	}, true
}

func (r rawStep2) put(b []byte) {
	putFixedString(b[:ShortNameLen], r.Name)
	be := binary.BigEndian
	be.PutUint16(b[4:], r.Flag)
	be.PutUint16(b[6:], r.Self)
	be.PutUint16(b[8:], r.DataDefStart)
	be.PutUint16(b[10:], r.DataDefCount)
}

type rawDataDef struct {
	Name       string
	Flag       uint16
	DataType   uint16
	DataStart  uint16
	DataLength uint16
}

func decodeDataDef(b []byte) (rawDataDef, bool) {
	name, ok := readFixedString(b[:ShortNameLen])
	if !ok {
		return rawDataDef{}, false
	}
	be := binary.BigEndian
	return rawDataDef{
		Name:       name,
		Flag:       be.Uint16(b[4:]),
		DataType:   be.Uint16(b[6:]),
		DataStart:  be.Uint16(b[8:]),
		DataLength: be.Uint16(b[10:]),
	}, true
}

func (r rawDataDef) put(b []byte) {
	putFixedString(b[:ShortNameLen], r.Name)
	be := binary.BigEndian
	be.PutUint16(b[4:], r.Flag)
	be.PutUint16(b[6:], r.DataType)
	be.PutUint16(b[8:], r.DataStart)
	be.PutUint16(b[10:], r.DataLength)
}
