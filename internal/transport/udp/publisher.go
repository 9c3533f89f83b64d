// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"math"
	"time"

	"termviz/internal/analysis"
	applog "termviz/internal/log"

	"github.com/pkg/errors"
)

// ErrUnsupportedPayload is returned by Send for data that carries no bands.
var ErrUnsupportedPayload = errors.New("payload carries no band vector")

// HeaderSize is the fixed part of every packet.
const HeaderSize = 4 + 8 + 2

// bandCarrier is anything that exposes a band vector, such as a rendered frame.
type bandCarrier interface {
	BandVector() analysis.BandVector
}

// packetSender is the part of UDPSender the publisher needs.
type packetSender interface {
	Send(data []byte) error
	Close() error
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Band Count        | uint16         | 2            | Number of bands (N)     |
| Bands             | []uint32       | N * 4        | Displayed band values   |
+-----------------------------------------------------------------------------+

Visual Layout:

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Band Count   |          Bands          |
|      (uint32)     |        (int64)        |   (uint16)    |      (N * uint32)       |
+-------------------+-----------------------+---------------+-------------------------+

Band values above math.MaxUint32 saturate.
*/

// Publisher packs band vectors into packets and sends them over UDP. It is
// driven by the render loop, one packet per frame; there is no goroutine.
type Publisher struct {
	sender      packetSender
	now         func() time.Time
	sequenceNum uint32

	packet []byte // reused across packets
}

// NewPublisher wraps sender. The publisher owns sender and closes it.
func NewPublisher(sender packetSender) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("UDP publisher: sender cannot be nil")
	}
	return &Publisher{
		sender: sender,
		now:    time.Now,
		packet: make([]byte, 0, HeaderSize+64*4),
	}, nil
}

// Dial resolves addr and returns a publisher sending to it.
func Dial(addr string) (*Publisher, error) {
	sender, err := NewUDPSender(addr)
	if err != nil {
		return nil, err
	}
	return NewPublisher(sender)
}

// Send packs the band vector carried by data and transmits one packet.
func (p *Publisher) Send(data any) error {
	var bands analysis.BandVector
	switch v := data.(type) {
	case bandCarrier:
		bands = v.BandVector()
	case analysis.BandVector:
		bands = v
	case []uint64:
		bands = v
	default:
		return errors.Wrapf(ErrUnsupportedPayload, "%T", data)
	}

	packet, err := p.buildPacket(bands)
	if err != nil {
		return err
	}
	if err := p.sender.Send(packet); err != nil {
		return err
	}

	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	return nil
}

// buildPacket encodes bands. The returned slice is valid until the next call.
func (p *Publisher) buildPacket(bands analysis.BandVector) ([]byte, error) {
	if len(bands) > math.MaxUint16 {
		return nil, errors.Errorf("UDP publisher: %d bands do not fit in one packet", len(bands))
	}

	p.sequenceNum++
	timestamp := p.now().UnixNano()

	buf := p.packet[:0]
	buf = binary.BigEndian.AppendUint32(buf, p.sequenceNum)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(bands)))
	for _, v := range bands {
		buf = binary.BigEndian.AppendUint32(buf, uint32(min(v, math.MaxUint32)))
	}
	p.packet = buf

	return buf, nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

// Packet is a decoded band packet.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Bands     []uint32
}

// DecodePacket parses a packet built by Publisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, errors.Errorf("short packet: %d bytes", len(b))
	}

	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != HeaderSize+count*4 {
		return Packet{}, errors.Errorf("packet length %d does not match %d bands", len(b), count)
	}

	pkt.Bands = make([]uint32, count)
	for i := range pkt.Bands {
		off := HeaderSize + i*4
		pkt.Bands[i] = binary.BigEndian.Uint32(b[off : off+4])
	}
	return pkt, nil
}
