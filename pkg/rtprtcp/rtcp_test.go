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

	"github.com/pion/rtcp"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/assert"
)

func TestSrPack(t *testing.T) {
	sr := rtprtcp.Sr{
		SenderSsrc: 0x11223344,
		Msw:        3805600902,
		Lsw:        2181843386,
		Timestamp:  90000,
		PktCnt:     100,
		OctetCnt:   120000,
	}
	b := sr.Pack()
	assert.Equal(t, rtprtcp.RtcpSrLength, len(b))
	assert.Equal(t, []byte{0x80, 200, 0, 6}, b[:4])

	h, err := rtprtcp.ParseRtcpHeader(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, 28, h.ByteLength())

	s, err := rtprtcp.ParseSr(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, sr, s)

	// 和pion/rtcp的实现互通
	var p rtcp.SenderReport
	assert.Equal(t, nil, p.Unmarshal(b))
	assert.Equal(t, sr.SenderSsrc, p.SSRC)
	assert.Equal(t, sr.Ntp(), p.NTPTime)
	assert.Equal(t, sr.Timestamp, p.RTPTime)
	assert.Equal(t, sr.PktCnt, p.PacketCount)
	assert.Equal(t, sr.OctetCnt, p.OctetCount)
}

func TestParseSrFromPion(t *testing.T) {
	p := rtcp.SenderReport{
		SSRC:        1,
		NTPTime:     rtprtcp.MswLsw2Ntp(10, 20),
		RTPTime:     30,
		PacketCount: 40,
		OctetCount:  50,
		Reports: []rtcp.ReceptionReport{
			{SSRC: 2, FractionLost: 3},
		},
	}
	b, err := p.Marshal()
	assert.Equal(t, nil, err)

	// report block被忽略
	s, err := rtprtcp.ParseSr(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(1), s.SenderSsrc)
	assert.Equal(t, uint32(10), s.Msw)
	assert.Equal(t, uint32(20), s.Lsw)
	assert.Equal(t, uint32(30), s.Timestamp)
	assert.Equal(t, uint32(40), s.PktCnt)
	assert.Equal(t, uint32(50), s.OctetCnt)
}

func TestParseSrInvalid(t *testing.T) {
	sr := rtprtcp.Sr{SenderSsrc: 1}
	b := sr.Pack()

	_, err := rtprtcp.ParseSr(b[:20])
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedPacket))

	rr := append([]byte{}, b...)
	rr[1] = rtprtcp.RtcpPacketTypeRr
	_, err = rtprtcp.ParseSr(rr)
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedPacket))

	v1 := append([]byte{}, b...)
	v1[0] = 0x40
	_, err = rtprtcp.ParseSr(v1)
	assert.Equal(t, true, errors.Is(err, base.ErrMalformedPacket))
}
