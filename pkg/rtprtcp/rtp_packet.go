// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package rtprtcp

import (
	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// -----------------------------------
// rfc3550 5.1 RTP Fixed Header Fields
// -----------------------------------
//
// 0                   1                   2                   3
// 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |V=2|P|X|  CC   |M|     PT      |       sequence number         |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                           timestamp                           |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |           synchronization source (SSRC) identifier            |
// +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
// |            contributing source (CSRC) identifiers             |
// |                             ....                              |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// 不支持CSRC列表，CC必须为0

const (
	RtpFixedHeaderLength = 12

	RtpVersion = 2
)

type RtpHeader struct {
	Version    uint8  // 2b  *
	Padding    uint8  // 1b
	Extension  uint8  // 1
	CsrcCount  uint8  // 4b
	Mark       uint8  // 1b  *
	PacketType uint8  // 7b
	Seq        uint16 // 16b **
	Timestamp  uint32 // 32b **** samples
	Ssrc       uint32 // 32b **** Synchronization source

	payloadOffset uint32
	paddingLength uint32
}

type RtpPacket struct {
	Header RtpHeader
	Raw    []byte // 包含header内存
}

func MakeDefaultRtpHeader() RtpHeader {
	return RtpHeader{
		Version:       RtpVersion,
		Padding:       0,
		Extension:     0,
		CsrcCount:     0,
		payloadOffset: RtpFixedHeaderLength,
	}
}

// PackTo @param out 传出参数，注意，调用方保证长度>=12
func (h *RtpHeader) PackTo(out []byte) {
	out[0] = h.CsrcCount | (h.Extension << 4) | (h.Padding << 5) | (h.Version << 6)
	out[1] = h.PacketType | (h.Mark << 7)
	bele.BePutUint16(out[2:], h.Seq)
	bele.BePutUint32(out[4:], h.Timestamp)
	bele.BePutUint32(out[8:], h.Ssrc)
}

func MakeRtpPacket(h RtpHeader, payload []byte) (pkt RtpPacket) {
	pkt.Header = h
	pkt.Header.payloadOffset = RtpFixedHeaderLength
	pkt.Raw = make([]byte, RtpFixedHeaderLength+len(payload))
	pkt.Header.PackTo(pkt.Raw)
	copy(pkt.Raw[RtpFixedHeaderLength:], payload)
	return
}

// ParseRtpHeader 解析并校验rtp包头
//
// 版本号不为2、长度不足、带CSRC列表、扩展头或填充长度越界时返回 base.ErrMalformedPacket
func ParseRtpHeader(b []byte) (h RtpHeader, err error) {
	if len(b) < RtpFixedHeaderLength {
		err = base.NewErrMalformedPacket("short header", len(b))
		return
	}

	h.Version = b[0] >> 6
	h.Padding = (b[0] >> 5) & 0x1
	h.Extension = (b[0] >> 4) & 0x1
	h.CsrcCount = b[0] & 0xF
	h.Mark = b[1] >> 7
	h.PacketType = b[1] & 0x7F
	h.Seq = bele.BeUint16(b[2:])
	h.Timestamp = bele.BeUint32(b[4:])
	h.Ssrc = bele.BeUint32(b[8:])

	if h.Version != RtpVersion {
		err = base.NewErrMalformedPacket("invalid version", len(b))
		return
	}
	if h.CsrcCount != 0 {
		err = base.NewErrMalformedPacket("csrc not supported", len(b))
		return
	}

	h.payloadOffset = RtpFixedHeaderLength
	if h.Extension == 1 {
		// rfc3550 5.3.1 16b profile + 16b length(in 32b words) + extension
		if len(b) < RtpFixedHeaderLength+4 {
			err = base.NewErrMalformedPacket("short extension", len(b))
			return
		}
		extLen := uint32(bele.BeUint16(b[RtpFixedHeaderLength+2:])) * 4
		h.payloadOffset += 4 + extLen
		if int(h.payloadOffset) > len(b) {
			err = base.NewErrMalformedPacket("extension out of range", len(b))
			return
		}
	}

	if h.Padding == 1 {
		h.paddingLength = uint32(b[len(b)-1])
		if h.paddingLength == 0 || int(h.payloadOffset+h.paddingLength) > len(b) {
			err = base.NewErrMalformedPacket("invalid padding", len(b))
			return
		}
	}
	return
}

// ParseRtpPacket 函数调用结束后，不持有参数<b>的内存块
func ParseRtpPacket(b []byte) (pkt RtpPacket, err error) {
	pkt.Header, err = ParseRtpHeader(b)
	if err != nil {
		return
	}
	pkt.Raw = make([]byte, len(b))
	copy(pkt.Raw, b)
	return
}

// Body 去掉rtp包头、扩展头以及填充后的负载
func (p RtpPacket) Body() []byte {
	return p.Raw[p.Header.payloadOffset : uint32(len(p.Raw))-p.Header.paddingLength]
}

// IsRtcpPacketType 和rtp复用同一个端口时，通过第二个字节区分rtcp，见rfc5761 4.
func IsRtcpPacketType(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[1] >= RtcpPacketTypeSr && b[1] <= RtcpPacketTypeApp
}
