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

// -------------------------------------------
// rfc3550 6.4.1 SR: Sender Report RTCP Packet
// -------------------------------------------
//
//        0                   1                   2                   3
//        0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// header |V=2|P|    RC   |   PT=SR=200   |             length            |
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |                         SSRC of sender                        |
//        +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
// sender |              NTP timestamp, most significant word             |
// info   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |             NTP timestamp, least significant word             |
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |                         RTP timestamp                         |
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |                     sender's packet count                     |
//        +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//        |                      sender's octet count                     |
//        +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
// report |                 SSRC_1 (SSRC of first source)                 |
// block  :                               ...                             :
//        +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
//
// 内部打包器只发送不带report block的sr，接收时忽略report block

const (
	RtcpPacketTypeSr   = 200 // 0xc8 Sender Report
	RtcpPacketTypeRr   = 201 // 0xc9 Receiver Report
	RtcpPacketTypeSdes = 202
	RtcpPacketTypeBye  = 203
	RtcpPacketTypeApp  = 204

	RtcpHeaderLength = 4

	// RtcpSrLength 不带report block的sr包的长度
	RtcpSrLength = 28

	RtcpVersion = 2
)

type RtcpHeader struct {
	Version       uint8  // 2b
	Padding       uint8  // 1b
	CountOrFormat uint8  // 5b
	PacketType    uint8  // 8b
	Length        uint16 // 16b, whole packet byte length = (Length+1) * 4
}

type Sr struct {
	SenderSsrc uint32
	Msw        uint32 // NTP timestamp, most significant word
	Lsw        uint32 // NTP timestamp, least significant word
	Timestamp  uint32
	PktCnt     uint32
	OctetCnt   uint32
}

func ParseRtcpHeader(b []byte) (h RtcpHeader, err error) {
	if len(b) < RtcpHeaderLength {
		err = base.NewErrMalformedPacket("short rtcp header", len(b))
		return
	}
	h.Version = b[0] >> 6
	h.Padding = (b[0] >> 5) & 0x1
	h.CountOrFormat = b[0] & 0x1F
	h.PacketType = b[1]
	h.Length = bele.BeUint16(b[2:])

	if h.Version != RtcpVersion {
		err = base.NewErrMalformedPacket("invalid rtcp version", len(b))
		return
	}
	if h.ByteLength() > len(b) {
		err = base.NewErrMalformedPacket("rtcp length out of range", len(b))
	}
	return
}

// ByteLength 包头中length字段对应的整个rtcp包的字节数
func (r *RtcpHeader) ByteLength() int {
	return (int(r.Length) + 1) * 4
}

// PackTo @param out 传出参数，注意，调用方保证长度>=4
func (r *RtcpHeader) PackTo(out []byte) {
	out[0] = r.Version<<6 | r.Padding<<5 | r.CountOrFormat
	out[1] = r.PacketType
	bele.BePutUint16(out[2:], r.Length)
}

// ParseSr rfc3550 6.4.1
//
// @param b rtcp包，包含包头
func ParseSr(b []byte) (s Sr, err error) {
	h, err := ParseRtcpHeader(b)
	if err != nil {
		return
	}
	if h.PacketType != RtcpPacketTypeSr {
		err = base.NewErrMalformedPacket("not sender report", len(b))
		return
	}
	if len(b) < RtcpSrLength || h.ByteLength() < RtcpSrLength {
		err = base.NewErrMalformedPacket("short sender report", len(b))
		return
	}

	s.SenderSsrc = bele.BeUint32(b[4:])
	s.Msw = bele.BeUint32(b[8:])
	s.Lsw = bele.BeUint32(b[12:])
	s.Timestamp = bele.BeUint32(b[16:])
	s.PktCnt = bele.BeUint32(b[20:])
	s.OctetCnt = bele.BeUint32(b[24:])
	return
}

// Pack 打包成不带report block的sr包，28字节
func (s *Sr) Pack() []byte {
	out := make([]byte, RtcpSrLength)
	s.PackTo(out)
	return out
}

// PackTo @param out 传出参数，注意，调用方保证长度>=28
func (s *Sr) PackTo(out []byte) {
	h := RtcpHeader{
		Version:       RtcpVersion,
		Padding:       0,
		CountOrFormat: 0,
		PacketType:    RtcpPacketTypeSr,
		Length:        RtcpSrLength/4 - 1,
	}
	h.PackTo(out)
	bele.BePutUint32(out[4:], s.SenderSsrc)
	bele.BePutUint32(out[8:], s.Msw)
	bele.BePutUint32(out[12:], s.Lsw)
	bele.BePutUint32(out[16:], s.Timestamp)
	bele.BePutUint32(out[20:], s.PktCnt)
	bele.BePutUint32(out[24:], s.OctetCnt)
}

// Ntp 64位的ntp时间戳
func (s *Sr) Ntp() uint64 {
	return MswLsw2Ntp(uint64(s.Msw), uint64(s.Lsw))
}
