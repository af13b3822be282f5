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
	"math/rand"
	"testing"
	"time"

	"github.com/pion/rtcp"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/clock"
	"github.com/homer-conferencing/rtpcore/pkg/rtprtcp"
	"github.com/homer-conferencing/rtpcore/pkg/stat"
	"github.com/q191201771/naza/pkg/assert"
)

var (
	h261Stream = base.StreamInfo{Codec: base.CodecIdH261, TimeBase: 1000}
	pcmuStream = base.StreamInfo{Codec: base.CodecIdPcmu, TimeBase: 8000, SampleRate: 8000, Channels: 1}
	opusStream = base.StreamInfo{Codec: base.CodecIdOpus, TimeBase: 48000, SampleRate: 48000, Channels: 2}
	vp8Stream  = base.StreamInfo{Codec: base.CodecIdVp8, TimeBase: 1000}
	mpaStream  = base.StreamInfo{Codec: base.CodecIdMp3, TimeBase: 90000, SampleRate: 32000, Channels: 2}
)

func genFrame(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

func newMockPacketizer(c clock.Clock) *rtprtcp.RtpPacketizer {
	return rtprtcp.NewRtpPacketizer("TEST", func(option *rtprtcp.RtpPacketizerOption) {
		option.Clock = c
		option.H261PayloadSizeMax = 1400
	})
}

func TestH261Packetize(t *testing.T) {
	mc := clock.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p := newMockPacketizer(mc)
	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, h261Stream))
	assert.Equal(t, true, p.IsOpen())
	assert.Equal(t, uint8(31), p.GetPayloadId())

	frame := genFrame(3500)
	blob, err := p.Create(frame, 1000)
	assert.Equal(t, nil, err)

	// sr在帧的rtp包之前
	assert.Equal(t, 4, blob.Len())
	assert.Equal(t, true, blob.Packets[0].IsRtcp)
	sr, err := rtprtcp.ParseSr(blob.Packets[0].Raw)
	assert.Equal(t, nil, err)
	assert.Equal(t, p.GetLocalSsrc(), sr.SenderSsrc)
	assert.Equal(t, rtprtcp.Time2Ntp(mc.Now()), sr.Ntp())
	assert.Equal(t, uint32(90000), sr.Timestamp)
	assert.Equal(t, uint32(0), sr.PktCnt)

	pkts := blob.RtpPackets()
	assert.Equal(t, 3, len(pkts))
	var joined []byte
	var s uint16
	for i, raw := range pkts {
		pkt, err := rtprtcp.ParseRtpPacket(raw)
		assert.Equal(t, nil, err)
		h := pkt.Header
		if i == 0 {
			s = h.Seq
		}
		assert.Equal(t, s+uint16(i), h.Seq)
		assert.Equal(t, uint32(90000), h.Timestamp)
		assert.Equal(t, p.GetLocalSsrc(), h.Ssrc)
		assert.Equal(t, uint8(31), h.PacketType)
		if i == 2 {
			assert.Equal(t, uint8(1), h.Mark)
		} else {
			assert.Equal(t, uint8(0), h.Mark)
		}

		body := pkt.Body()
		assert.Equal(t, []byte{0x01, 0, 0, 0}, body[:4])
		joined = append(joined, body[4:]...)
	}
	assert.Equal(t, 1404, len(pkts[0])-rtprtcp.RtpFixedHeaderLength)
	assert.Equal(t, 704, len(pkts[2])-rtprtcp.RtpFixedHeaderLength)
	assert.Equal(t, frame, joined)

	assert.Equal(t, uint64(3), p.GetSentPackets())
	assert.Equal(t, uint64(3500+3*4), p.GetSentOctets())
}

func TestSenderReportInterval(t *testing.T) {
	mc := clock.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p := newMockPacketizer(mc)
	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, h261Stream))

	blob, err := p.Create(genFrame(100), 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, blob.Len())

	mc.Advance(time.Second)
	blob, err = p.Create(genFrame(100), 1000)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, blob.Len())
	assert.Equal(t, false, blob.Packets[0].IsRtcp)

	mc.Advance(4 * time.Second)
	blob, err = p.Create(genFrame(100), 5000)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, blob.Len())
	assert.Equal(t, true, blob.Packets[0].IsRtcp)
	sr, err := rtprtcp.ParseSr(blob.Packets[0].Raw)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(2), sr.PktCnt)
	assert.Equal(t, uint32(2*(100+4)), sr.OctetCnt)
	assert.Equal(t, uint32(5*90000), sr.Timestamp)
	assert.Equal(t, rtprtcp.Time2Ntp(mc.Now()), sr.Ntp())
}

func TestPacketizerLifecycle(t *testing.T) {
	p := rtprtcp.NewRtpPacketizer("TEST")

	_, err := p.Create(genFrame(10), 0)
	assert.Equal(t, base.ErrNotOpen, err)
	_, err = p.Close()
	assert.Equal(t, base.ErrNotOpen, err)

	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, pcmuStream))
	assert.Equal(t, base.ErrAlreadyOpen, p.Open("127.0.0.1", 5004, pcmuStream))

	_, err = p.Create(nil, 0)
	assert.Equal(t, true, errors.Is(err, base.ErrPacketizer))
	assert.Equal(t, true, p.IsOpen())

	ssrc := p.GetLocalSsrc()
	blob, err := p.Close()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, blob.Len())
	assert.Equal(t, true, blob.Packets[0].IsRtcp)
	var bye rtcp.Goodbye
	assert.Equal(t, nil, bye.Unmarshal(blob.Packets[0].Raw))
	assert.Equal(t, []uint32{ssrc}, bye.Sources)
	assert.Equal(t, false, p.IsOpen())

	// 关闭后可以再次打开，计数清零
	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, pcmuStream))
	assert.Equal(t, uint64(0), p.GetSentPackets())
}

func TestPacketizerUnsupported(t *testing.T) {
	p := rtprtcp.NewRtpPacketizer("TEST")
	err := p.Open("127.0.0.1", 5004, base.StreamInfo{Codec: base.CodecIdTheora, TimeBase: 1000})
	assert.Equal(t, true, errors.Is(err, base.ErrUnsupportedPayload))
	err = p.Open("127.0.0.1", 5004, base.StreamInfo{Codec: base.CodecIdUnknown})
	assert.Equal(t, true, errors.Is(err, base.ErrUnsupportedPayload))
	assert.Equal(t, false, p.IsOpen())
}

func TestPacketizerInvalidStreamInfo(t *testing.T) {
	p := rtprtcp.NewRtpPacketizer("TEST")
	err := p.Open("127.0.0.1", 5004, base.StreamInfo{Codec: base.CodecIdH261})
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidStreamInfo))
	err = p.Open("127.0.0.1", 5004, base.StreamInfo{Codec: base.CodecIdPcmu, TimeBase: -8000})
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidStreamInfo))
	assert.Equal(t, false, p.IsOpen())

	_, err = p.Create(genFrame(10), 0)
	assert.Equal(t, base.ErrNotOpen, err)
}

func TestGenericPacketize(t *testing.T) {
	mc := clock.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p := newMockPacketizer(mc)
	ps := stat.NewPacketStatistic()
	p.SetPacketStatistic(ps)
	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, pcmuStream))

	blob, err := p.Create(genFrame(160), 160)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, blob.Len())

	// pion/rtcp产生的sr，时间戳在产生时打上
	var sr rtcp.SenderReport
	assert.Equal(t, nil, sr.Unmarshal(blob.Packets[0].Raw))
	assert.Equal(t, p.GetLocalSsrc(), sr.SSRC)
	assert.Equal(t, uint32(160), sr.RTPTime)
	assert.Equal(t, rtprtcp.Time2Ntp(mc.Now()), sr.NTPTime)

	pkt, err := rtprtcp.ParseRtpPacket(blob.Packets[1].Raw)
	assert.Equal(t, nil, err)
	assert.Equal(t, p.GetLocalSsrc(), pkt.Header.Ssrc)
	assert.Equal(t, uint32(160), pkt.Header.Timestamp)
	assert.Equal(t, uint8(0), pkt.Header.PacketType)
	assert.Equal(t, 160, len(pkt.Body()))

	assert.Equal(t, uint64(2), ps.GetStat().SentPackets)
}

func TestGenericPacketizeFragments(t *testing.T) {
	p := rtprtcp.NewRtpPacketizer("TEST", func(option *rtprtcp.RtpPacketizerOption) {
		option.Mtu = 1200
	})
	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, vp8Stream))

	blob, err := p.Create(genFrame(5000), 40)
	assert.Equal(t, nil, err)
	pkts := blob.RtpPackets()
	assert.Equal(t, true, len(pkts) >= 5)

	first, _ := rtprtcp.ParseRtpHeader(pkts[0])
	for i, raw := range pkts {
		assert.Equal(t, true, len(raw) <= 1200)
		h, err := rtprtcp.ParseRtpHeader(raw)
		assert.Equal(t, nil, err)
		assert.Equal(t, first.Seq+uint16(i), h.Seq)
		assert.Equal(t, uint32(40*90), h.Timestamp)
		assert.Equal(t, p.GetLocalSsrc(), h.Ssrc)
		if i == len(pkts)-1 {
			assert.Equal(t, uint8(1), h.Mark)
		} else {
			assert.Equal(t, uint8(0), h.Mark)
		}
	}

	// 序号在帧之间连续
	blob, err = p.Create(genFrame(100), 80)
	assert.Equal(t, nil, err)
	h, _ := rtprtcp.ParseRtpHeader(blob.RtpPackets()[0])
	assert.Equal(t, first.Seq+uint16(len(pkts)), h.Seq)
}

func TestPacketBlobBytes(t *testing.T) {
	p := rtprtcp.NewRtpPacketizer("TEST")
	assert.Equal(t, nil, p.Open("127.0.0.1", 5004, h261Stream))
	blob, err := p.Create(genFrame(3000), 0)
	assert.Equal(t, nil, err)

	b := blob.Bytes()
	var n int
	for _, pkt := range blob.Packets {
		n += 4 + len(pkt.Raw)
	}
	assert.Equal(t, n, len(b))

	pb, err := rtprtcp.ParsePacketBlob(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, blob, pb)

	_, err = rtprtcp.ParsePacketBlob(b[:len(b)-1])
	assert.Equal(t, base.ErrShortBuffer, err)
}
