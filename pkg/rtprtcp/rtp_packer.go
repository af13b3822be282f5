// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"time"

	"github.com/pion/randutil"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/clock"
	"github.com/homer-conferencing/rtpcore/pkg/stat"
)

// RtpPacketizer 将编码后的一帧数据打包成rtp包，一路出方向的流对应一个对象
//
// h261使用内部打包器，其他编码使用pion/rtp的打包器。打包器不做网络io，返回的数据报由调用方发送。
// 非协程安全，由打包线程调用。
type RtpPacketizer struct {
	uniqueKey string
	option    RtpPacketizerOption

	opened     bool
	targetHost string
	targetPort int
	stream     base.StreamInfo
	payloadId  uint8
	rtpClock   int

	localSsrc uint32
	seq       uint16 // 下一个rtp包使用的序号

	packer     iRtpPacker
	srProducer *RtcpSenderReportProducer
	openTime   time.Time
	lastSrTime time.Time
	srSent     bool

	sentPackets uint64
	sentOctets  uint64
	statistic   stat.IPacketStatistic
	logDump     base.LogDump
}

type RtpPacketizerOption struct {
	// H261PayloadSizeMax 为0时使用进程级别的配置，见 GetH261PayloadSizeMax
	H261PayloadSizeMax int

	// Mtu 通用打包器的mtu，包含rtp包头
	Mtu int

	// SenderReportIntervalMs 发送rtcp sr的间隔，墙上时间
	SenderReportIntervalMs int

	Clock clock.Clock

	DebugDumpPacket int
}

var defaultRtpPacketizerOption = RtpPacketizerOption{
	H261PayloadSizeMax:     0,
	Mtu:                    base.DefaultGenericMtu,
	SenderReportIntervalMs: base.SenderReportIntervalMs,
	Clock:                  clock.NewSystemClock(),
	DebugDumpPacket:        10,
}

type ModRtpPacketizerOption func(option *RtpPacketizerOption)

// iRtpPacker 具体的打包策略
type iRtpPacker interface {
	// pack 打包一帧数据
	//
	// @param ts: 当前帧的rtp时间戳
	//
	// @return 打包好的rtp包，序号从 RtpPacketizer.seq 开始连续递增
	pack(frame []byte, ts uint32) ([][]byte, error)

	// makeSenderReport 产生rtcp sr包，时间戳在产生时打上
	makeSenderReport(now time.Time, ts uint32) ([]byte, error)
}

func NewRtpPacketizer(uniqueKey string, modOptions ...ModRtpPacketizerOption) *RtpPacketizer {
	option := defaultRtpPacketizerOption
	for _, fn := range modOptions {
		fn(&option)
	}

	return &RtpPacketizer{
		uniqueKey: uniqueKey,
		option:    option,
		logDump:   base.NewLogDump(Log, uniqueKey, option.DebugDumpPacket),
	}
}

// Open 初始化打包状态，并根据编码选择打包策略
//
// @param targetHost, targetPort: 对端地址，只用于日志，打包器不做网络io
func (r *RtpPacketizer) Open(targetHost string, targetPort int, stream base.StreamInfo) error {
	if r.opened {
		return base.ErrAlreadyOpen
	}

	payloadId, ok := CodecIdToPayloadId(stream.Codec)
	if !ok {
		return base.NewErrUnsupportedPayload(0)
	}
	if stream.TimeBase <= 0 {
		return base.NewErrInvalidStreamInfo(stream)
	}

	r.targetHost = targetHost
	r.targetPort = targetPort
	r.stream = stream
	r.payloadId = payloadId
	r.rtpClock = GetRtpClockRate(stream)
	r.localSsrc = genSsrc()
	r.seq = uint16(randutil.NewMathRandomGenerator().Uint32())
	r.sentPackets = 0
	r.sentOctets = 0
	r.openTime = r.option.Clock.Now()
	r.srSent = false
	r.srProducer = NewRtcpSenderReportProducer(r.localSsrc, r.openTime)
	r.logDump.Reset()

	if stream.Codec == base.CodecIdH261 {
		maxSize := r.option.H261PayloadSizeMax
		if maxSize == 0 {
			maxSize = GetH261PayloadSizeMax()
		}
		if maxSize < H261PayloadSizeMin || maxSize > H261PayloadSizeMax {
			return base.ErrInvalidPayloadSize
		}
		r.packer = newH261Packer(r, maxSize)
	} else {
		payloader, ok := NewPayloader(stream.Codec)
		if !ok {
			return base.NewErrUnsupportedPayload(payloadId)
		}
		r.packer = newGenericPacker(r, payloader)
	}

	r.opened = true
	Log.Infof("[%s] open rtp packetizer. target=%s:%d, codec=%s, pt=%d(%s), clock=%d, ssrc=%d, seq=%d",
		r.uniqueKey, targetHost, targetPort, stream.Codec.ReadableString(), payloadId, PayloadTypeName(payloadId),
		r.rtpClock, r.localSsrc, r.seq)
	return nil
}

// Create 打包一帧数据
//
// @param frame: 编码后的一帧数据，函数调用结束后，内部不持有该内存块
// @param pts:   帧的时间戳，单位是 StreamInfo.TimeBase
//
// @return blob: 需要到期发送rtcp sr时，sr在该帧的rtp包之前
func (r *RtpPacketizer) Create(frame []byte, pts int64) (blob PacketBlob, err error) {
	if !r.opened {
		err = base.ErrNotOpen
		return
	}
	if len(frame) == 0 {
		err = base.NewErrPacketizer(base.ErrShortBuffer)
		return
	}

	ts := Pts2RtpTimestamp(pts, r.rtpClock, r.stream.TimeBase)
	pkts, err := r.packer.pack(frame, ts)
	if err != nil {
		return
	}

	now := r.option.Clock.Now()
	if r.shouldSendSenderReport() {
		sr, err := r.packer.makeSenderReport(now, ts)
		if err != nil {
			return blob, base.NewErrPacketizer(err)
		}
		r.srSent = true
		r.lastSrTime = now
		blob.appendRtcp(sr)
		r.onSent(sr)
	}

	for _, pkt := range pkts {
		blob.appendRtp(pkt)
		r.srProducer.FeedRtpPacket(len(pkt) - RtpFixedHeaderLength)
		r.sentPackets++
		r.sentOctets += uint64(len(pkt) - RtpFixedHeaderLength)
		r.onSent(pkt)
	}
	r.seq += uint16(len(pkts))

	if r.logDump.ShouldDump() {
		r.logDump.Outf("create. len=%d, pts=%d, ts=%d, packets=%d, seq=%d", len(frame), pts, ts, len(pkts), r.seq)
	}
	return
}

// Close 返回rtcp bye包，并释放内部资源。关闭后可以再次 Open
func (r *RtpPacketizer) Close() (blob PacketBlob, err error) {
	if !r.opened {
		err = base.ErrNotOpen
		return
	}

	bye := rtcp.Goodbye{
		Sources: []uint32{r.localSsrc},
	}
	raw, err := bye.Marshal()
	if err != nil {
		Log.Warnf("[%s] marshal rtcp bye failed. err=%+v", r.uniqueKey, err)
		err = nil
	} else {
		blob.appendRtcp(raw)
		r.onSent(raw)
	}

	Log.Infof("[%s] close rtp packetizer. packets=%d, octets=%d", r.uniqueKey, r.sentPackets, r.sentOctets)
	r.packer = nil
	r.srProducer = nil
	r.opened = false
	return
}

func (r *RtpPacketizer) IsOpen() bool {
	return r.opened
}

func (r *RtpPacketizer) GetPayloadId() uint8 {
	return r.payloadId
}

func (r *RtpPacketizer) GetLocalSsrc() uint32 {
	return r.localSsrc
}

// GetSentPackets 发送的rtp包的数量，不包含rtcp包
func (r *RtpPacketizer) GetSentPackets() uint64 {
	return r.sentPackets
}

// GetSentOctets 发送的rtp负载的字节数，不包含rtp包头
func (r *RtpPacketizer) GetSentOctets() uint64 {
	return r.sentOctets
}

func (r *RtpPacketizer) GetRtpClockRate() int {
	return r.rtpClock
}

func (r *RtpPacketizer) SetPacketStatistic(statistic stat.IPacketStatistic) {
	r.statistic = statistic
}

func (r *RtpPacketizer) shouldSendSenderReport() bool {
	if !r.srSent {
		return true
	}
	return clock.Since(r.option.Clock, r.lastSrTime) >= time.Duration(r.option.SenderReportIntervalMs)*time.Millisecond
}

func (r *RtpPacketizer) onSent(raw []byte) {
	if r.statistic != nil {
		r.statistic.OnPacketSent(len(raw))
	}
}

// ---------------------------------------------------------------------------------------------------------------------

// h261Packer 内部打包器，rtp包头和rtcp sr都由本包组装
type h261Packer struct {
	p       *RtpPacketizer
	payload IRtpPackerPayload
	maxSize int
}

func newH261Packer(p *RtpPacketizer, maxSize int) *h261Packer {
	return &h261Packer{
		p:       p,
		payload: NewRtpPackerPayloadH261(),
		maxSize: maxSize,
	}
}

func (h *h261Packer) pack(frame []byte, ts uint32) (out [][]byte, err error) {
	payloads := h.payload.Pack(frame, h.maxSize)
	seq := h.p.seq
	for i, payload := range payloads {
		hdr := MakeDefaultRtpHeader()
		if i == len(payloads)-1 {
			hdr.Mark = 1
		}
		hdr.PacketType = h.p.payloadId
		hdr.Seq = seq
		hdr.Timestamp = ts
		hdr.Ssrc = h.p.localSsrc
		pkt := MakeRtpPacket(hdr, payload)
		out = append(out, pkt.Raw)
		seq++
	}
	return
}

func (h *h261Packer) makeSenderReport(now time.Time, ts uint32) ([]byte, error) {
	return h.p.srProducer.Produce(now, ts), nil
}

// ---------------------------------------------------------------------------------------------------------------------

// genericPacker 使用pion/rtp的打包器，每个输出的rtp包在序列化之前打上本地ssrc和由pts换算的时间戳
type genericPacker struct {
	p          *RtpPacketizer
	packetizer rtp.Packetizer
}

func newGenericPacker(p *RtpPacketizer, payloader rtp.Payloader) *genericPacker {
	return &genericPacker{
		p:          p,
		packetizer: rtp.NewPacketizer(uint16(p.option.Mtu), p.payloadId, p.localSsrc, payloader, rtp.NewFixedSequencer(p.seq), uint32(p.rtpClock)),
	}
}

func (g *genericPacker) pack(frame []byte, ts uint32) (out [][]byte, err error) {
	pkts := g.packetizer.Packetize(frame, 0)
	if len(pkts) == 0 {
		err = base.NewErrPacketizer(base.ErrShortBuffer)
		return
	}

	for _, pkt := range pkts {
		pkt.Timestamp = ts
		pkt.SSRC = g.p.localSsrc
		pkt.CSRC = nil
		raw, merr := pkt.Marshal()
		if merr != nil {
			err = base.NewErrPacketizer(merr)
			return nil, err
		}
		out = append(out, raw)
	}
	return
}

// makeSenderReport 只对sr打上实时的ntp和rtp时间戳，其他rtcp包不处理
func (g *genericPacker) makeSenderReport(now time.Time, ts uint32) ([]byte, error) {
	sr := g.p.srProducer.MakeSr(now, ts)
	pkt := rtcp.SenderReport{
		SSRC:        sr.SenderSsrc,
		NTPTime:     sr.Ntp(),
		RTPTime:     sr.Timestamp,
		PacketCount: sr.PktCnt,
		OctetCount:  sr.OctetCnt,
	}
	return pkt.Marshal()
}

// ---------------------------------------------------------------------------------------------------------------------

func genSsrc() uint32 {
	v, err := randutil.CryptoUint64()
	if err != nil {
		Log.Warnf("generate ssrc by crypto rand failed, fallback to math rand. err=%+v", err)
		return randutil.NewMathRandomGenerator().Uint32()
	}
	return uint32(v)
}
