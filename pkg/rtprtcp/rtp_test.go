// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp_test

import (
	"errors"
	"testing"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/assert"
)

func TestRtpHeader(t *testing.T) {
	h := rtprtcp.MakeDefaultRtpHeader()
	h.Mark = 1
	h.PacketType = rtprtcp.PayloadTypeH261
	h.Seq = 0xABCD
	h.Timestamp = 0x01020304
	h.Ssrc = 0xDEADBEEF
	pkt := rtprtcp.MakeRtpPacket(h, []byte{1, 2, 3})

	assert.Equal(t, []byte{0x80, 0x80 | 31, 0xAB, 0xCD, 1, 2, 3, 4, 0xDE, 0xAD, 0xBE, 0xEF, 1, 2, 3}, pkt.Raw)

	ph, err := rtprtcp.ParseRtpHeader(pkt.Raw)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(2), ph.Version)
	assert.Equal(t, uint8(1), ph.Mark)
	assert.Equal(t, uint8(31), ph.PacketType)
	assert.Equal(t, uint16(0xABCD), ph.Seq)
	assert.Equal(t, uint32(0x01020304), ph.Timestamp)
	assert.Equal(t, uint32(0xDEADBEEF), ph.Ssrc)

	p, err := rtprtcp.ParseRtpPacket(pkt.Raw)
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte{1, 2, 3}, p.Body())
}

func TestParseRtpHeaderInvalid(t *testing.T) {
	golden := rtprtcp.MakeRtpPacket(rtprtcp.MakeDefaultRtpHeader(), []byte{1, 2, 3, 4}).Raw

	cases := map[string][]byte{
		"short":   golden[:11],
		"version": append([]byte{0x40}, golden[1:]...),
		"csrc":    append([]byte{0x81}, golden[1:]...),
		// 扩展头长度越界
		"extension": append([]byte{0x90}, golden[1:]...),
		// 填充长度超过包长
		"padding": append(append([]byte{0xA0}, golden[1:len(golden)-1]...), 0xFF),
	}
	for name, b := range cases {
		_, err := rtprtcp.ParseRtpHeader(b)
		assert.Equal(t, true, errors.Is(err, base.ErrMalformedPacket), name)
	}
}

func TestRtpPacketExtensionAndPadding(t *testing.T) {
	b := []byte{
		0xB0, 31, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, // V=2 P=1 X=1
		0xBE, 0xDE, 0, 1, 0xAA, 0xBB, 0xCC, 0xDD, // 扩展头，1个32比特字
		9, 8, 7, // 负载
		0, 0, 3, // 填充
	}
	p, err := rtprtcp.ParseRtpPacket(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte{9, 8, 7}, p.Body())
}

func TestIsRtcpPacketType(t *testing.T) {
	assert.Equal(t, true, rtprtcp.IsRtcpPacketType([]byte{0x80, 200}))
	assert.Equal(t, true, rtprtcp.IsRtcpPacketType([]byte{0x80, 204}))
	assert.Equal(t, false, rtprtcp.IsRtcpPacketType([]byte{0x80, 205}))
	assert.Equal(t, false, rtprtcp.IsRtcpPacketType([]byte{0x80, 31}))
	assert.Equal(t, false, rtprtcp.IsRtcpPacketType([]byte{0x80}))
}
