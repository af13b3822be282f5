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
	"github.com/homer-conferencing/rtpcore/pkg/clock"
	"github.com/homer-conferencing/rtpcore/pkg/stat"
)

// RtpDepacketizer 传入rtp包，校验包头，扩展序号和时间戳，统计丢包，并合成帧
//
// 一路入方向的音频或视频流对应一个对象。非协程安全，由解包线程调用
type RtpDepacketizer struct {
	uniqueKey string
	option    RtpDepacketizerOption

	stream    base.StreamInfo
	payloadId uint8
	rtpClock  int

	state               recvState
	payloadDepacketizer IRtpPayloadDepacketizer

	// 正在合成的视频帧
	framePending bool
	frameTs      uint64
	frameDamaged bool
	frameBuf     []byte

	incompleteFrames uint64
	statistic        stat.IPacketStatistic
	logDump          base.LogDump
}

type RtpDepacketizerOption struct {
	// ResetScore 连续收到多少个陌生ssrc的包后认为发送源切换，取值范围[2, 5]
	ResetScore int

	// DeliverIncompleteFrames 丢失了分片的帧，是否仍然交给解码器
	DeliverIncompleteFrames bool

	Clock clock.Clock

	DebugDumpPacket int
}

var defaultRtpDepacketizerOption = RtpDepacketizerOption{
	ResetScore:              base.DefaultResetScore,
	DeliverIncompleteFrames: true,
	Clock:                   clock.NewSystemClock(),
	DebugDumpPacket:         10,
}

type ModRtpDepacketizerOption func(option *RtpDepacketizerOption)

type ParseResult struct {
	// Payload 去掉rtp包头和负载头后的数据。如果是rtcp sr，则是整个rtcp包
	Payload []byte

	IsLastFragment bool
	IsSenderReport bool
	IsRtcp         bool

	// SourceChanged 发送源切换，只在切换后的第一个包上为true
	SourceChanged bool

	Header       RtpHeader
	ExtSeq       uint64
	ExtTimestamp uint64
	Pts          int64

	// Frames 这个包完成的帧，可能为0个、1个或2个（前一个不完整的帧和当前帧）
	Frames []base.Frame
}

// recvState Parse会修改的所有状态，只读模式下在副本上计算
type recvState struct {
	ssrcLatched bool
	remoteSsrc  uint32
	hasForeign  bool
	foreignSsrc uint32
	resetScore  int

	seqExt   SeqExtender
	tsExt    TimestampExtender
	startSeq uint64
	startTs  uint64

	received      uint64
	lostPackets   uint64
	announcedLost uint64

	lastCompleteTs uint64
	lastPts        int64

	jitter JitterCalculator
}

func NewRtpDepacketizer(uniqueKey string, stream base.StreamInfo, modOptions ...ModRtpDepacketizerOption) (*RtpDepacketizer, error) {
	option := defaultRtpDepacketizerOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.ResetScore < 2 || option.ResetScore > 5 {
		Log.Warnf("[%s] invalid reset score, use default. score=%d", uniqueKey, option.ResetScore)
		option.ResetScore = base.DefaultResetScore
	}

	payloadId, ok := CodecIdToPayloadId(stream.Codec)
	if !ok {
		return nil, base.NewErrUnsupportedPayload(0)
	}
	// pts和rtp时间戳互相换算需要编解码层的时钟
	if stream.TimeBase <= 0 {
		return nil, base.NewErrInvalidStreamInfo(stream)
	}

	r := &RtpDepacketizer{
		uniqueKey:           uniqueKey,
		option:              option,
		stream:              stream,
		payloadId:           payloadId,
		rtpClock:            GetRtpClockRate(stream),
		payloadDepacketizer: NewPayloadDepacketizer(stream.Codec),
		logDump:             base.NewLogDump(Log, uniqueKey, option.DebugDumpPacket),
	}
	r.state = r.newRecvState()
	return r, nil
}

// Parse
//
// @param datagram: 收到的udp数据报，函数调用结束后，内部不持有该内存块
// @param readOnly: 为true时只计算结果，不修改任何状态和统计，也不合成帧
//
// @return err: 格式错误、负载类型不匹配、重复包、陌生ssrc的包被丢弃时返回，调用方只需要打印日志
func (r *RtpDepacketizer) Parse(datagram []byte, readOnly bool) (ret ParseResult, err error) {
	// rfc5761 rtp和rtcp复用同一个端口
	if IsRtcpPacketType(datagram) {
		ret.IsRtcp = true
		if datagram[1] == RtcpPacketTypeSr {
			ret.IsSenderReport = true
			ret.Payload = make([]byte, len(datagram))
			copy(ret.Payload, datagram)
		}
		return
	}

	pkt, err := ParseRtpPacket(datagram)
	if err != nil {
		r.onDropped(readOnly, len(datagram))
		return
	}
	h := pkt.Header
	ret.Header = h

	if h.PacketType != r.payloadId {
		err = base.NewErrUnsupportedPayload(h.PacketType)
		r.onDropped(readOnly, len(datagram))
		return
	}

	st := r.state

	sourceChanged, err := st.checkSource(h.Ssrc, r.option.ResetScore)
	if err != nil {
		if !readOnly {
			r.state = st
		}
		r.onDropped(readOnly, len(datagram))
		return
	}
	if sourceChanged {
		st = r.newRecvState()
		st.ssrcLatched = true
		st.remoteSsrc = h.Ssrc
	}

	first := !st.seqExt.Started()
	prevExtSeq := st.seqExt.Ext()
	extSeq, seqKind := st.seqExt.Feed(h.Seq)
	if !first && seqKind == ExtendSame {
		err = base.ErrDuplicatePacket
		if !readOnly {
			r.state = st
		}
		r.onDropped(readOnly, len(datagram))
		return
	}
	gap := !first && seqKind == ExtendAdvance && extSeq-prevExtSeq > 1

	var extTs uint64
	if seqKind == ExtendLate {
		extTs = extendNearby(st.tsExt.Ext(), h.Timestamp)
	} else {
		extTs, _ = st.tsExt.Feed(h.Timestamp)
	}
	if first {
		st.startSeq = extSeq
		st.startTs = extTs
	}

	depacketizer := r.payloadDepacketizer
	if readOnly || sourceChanged {
		depacketizer = NewPayloadDepacketizer(r.stream.Codec)
	}
	payload, err := depacketizer.Unmarshal(pkt.Body())
	if err != nil {
		r.onDropped(readOnly, len(datagram))
		return
	}

	st.received++
	st.lostPackets = st.calcLost()
	var lostDelta uint64
	if st.lostPackets > st.announcedLost {
		lostDelta = st.lostPackets - st.announcedLost
		st.announcedLost = st.lostPackets
	}

	pts := RtpTimestamp2Pts(extTs, r.rtpClock, r.stream.TimeBase)
	if seqKind == ExtendAdvance {
		st.jitter.Feed(r.option.Clock.Now(), h.Timestamp)
		st.lastPts = pts
	}

	ret.Payload = payload
	ret.SourceChanged = sourceChanged
	ret.ExtSeq = extSeq
	ret.ExtTimestamp = extTs
	ret.Pts = pts
	ret.IsLastFragment = depacketizer.IsPartitionTail(h.Mark == 1, pkt.Body())

	if readOnly {
		return
	}

	r.state = st
	if sourceChanged {
		Log.Infof("[%s] %s. ssrc=%d, seq=%d, ts=%d", r.uniqueKey, base.ErrSourceChanged.Error(), h.Ssrc, h.Seq, h.Timestamp)
		r.payloadDepacketizer = depacketizer
		r.resetFrame()
		r.logDump.Reset()
	}

	if r.statistic != nil {
		r.statistic.OnPacketReceived(len(datagram))
		if js, ok := r.statistic.(stat.IJitterStatistic); ok {
			js.SetJitter(st.jitter.Jitter())
		}
	}
	if lostDelta > 0 {
		r.AnnounceLostPackets(lostDelta)
	}

	if r.logDump.ShouldDump() {
		r.logDump.Outf("parse. ssrc=%d, seq=%d(%d), ts=%d(%d), mark=%d, len=%d, kind=%s, lost=%d",
			h.Ssrc, h.Seq, extSeq, h.Timestamp, extTs, h.Mark, len(payload), seqKind.ReadableString(), st.lostPackets)
	}

	if seqKind == ExtendLate {
		// 所属的帧已经交给解码器了
		return
	}
	ret.Frames = r.reassemble(extTs, gap, ret.IsLastFragment, pkt.Body(), payload)
	return
}

// AnnounceLostPackets 通知统计模块新增的丢包数
func (r *RtpDepacketizer) AnnounceLostPackets(delta uint64) {
	if r.statistic != nil {
		r.statistic.OnPacketLost(delta)
	}
}

func (r *RtpDepacketizer) SetPacketStatistic(statistic stat.IPacketStatistic) {
	r.statistic = statistic
}

// GetLostPackets max(0, 扩展序号 - 起始序号 + 1 - 收到的包数)
func (r *RtpDepacketizer) GetLostPackets() uint64 {
	return r.state.lostPackets
}

func (r *RtpDepacketizer) GetReceivedPackets() uint64 {
	return r.state.received
}

func (r *RtpDepacketizer) GetRemoteSsrc() uint32 {
	return r.state.remoteSsrc
}

func (r *RtpDepacketizer) GetExtendedSeq() uint64 {
	return r.state.seqExt.Ext()
}

func (r *RtpDepacketizer) GetExtendedTimestamp() uint64 {
	return r.state.tsExt.Ext()
}

func (r *RtpDepacketizer) GetSeqWraps() uint64 {
	return r.state.seqExt.Wraps
}

func (r *RtpDepacketizer) GetResetScore() int {
	return r.state.resetScore
}

func (r *RtpDepacketizer) GetJitter() uint32 {
	return r.state.jitter.Jitter()
}

// GetCurrentPts 最近一个按序到达的包的pts，单位是 StreamInfo.TimeBase
func (r *RtpDepacketizer) GetCurrentPts() int64 {
	return r.state.lastPts
}

// GetLastCompleteTimestamp 最近一个完整帧的扩展时间戳
func (r *RtpDepacketizer) GetLastCompleteTimestamp() uint64 {
	return r.state.lastCompleteTs
}

func (r *RtpDepacketizer) GetIncompleteFrames() uint64 {
	return r.incompleteFrames
}

func (r *RtpDepacketizer) GetPayloadId() uint8 {
	return r.payloadId
}

func (r *RtpDepacketizer) GetRtpClockRate() int {
	return r.rtpClock
}

func (r *RtpDepacketizer) GetStreamInfo() base.StreamInfo {
	return r.stream
}

// ExtendReferenceTimestamp 将rtcp sr中的rtp时间戳扩展到当前流的扩展时间戳附近
func (r *RtpDepacketizer) ExtendReferenceTimestamp(ts uint32) uint64 {
	if !r.state.tsExt.Started() {
		return uint64(ts)
	}
	return extendNearby(r.state.tsExt.Ext(), ts)
}

// ---------------------------------------------------------------------------------------------------------------------

func (r *RtpDepacketizer) newRecvState() recvState {
	return recvState{
		resetScore: r.option.ResetScore,
		jitter:     NewJitterCalculator(r.rtpClock),
	}
}

func (r *RtpDepacketizer) onDropped(readOnly bool, length int) {
	if readOnly || r.statistic == nil {
		return
	}
	r.statistic.OnPacketDropped(length)
}

// reassemble 时间戳相同的负载拼成一帧，收到最后一个分片或者时间戳变化时输出
//
// 视频帧在时间戳变化时还没有收到marker，说明丢了最后一个分片；
// 音频只有发送端分片时才在最后一个分片上打marker，时间戳变化说明前一帧已经收齐
func (r *RtpDepacketizer) reassemble(extTs uint64, gap bool, tail bool, body []byte, payload []byte) (frames []base.Frame) {
	isAudio := r.stream.Codec.IsAudio()

	if r.framePending && extTs != r.frameTs {
		if f, ok := r.flushFrame(isAudio && !r.frameDamaged); ok {
			frames = append(frames, f)
		}
	}

	if !r.framePending {
		r.framePending = true
		r.frameTs = extTs
		head := r.payloadDepacketizer.IsPartitionHead(body)
		if isAudio {
			// 比如mpa的Frag_offset不为0，帧的开头丢了
			r.frameDamaged = !head
		} else {
			r.frameDamaged = gap && !head
		}
	} else if gap {
		r.frameDamaged = true
	}
	r.frameBuf = append(r.frameBuf, payload...)

	if tail {
		if f, ok := r.flushFrame(!r.frameDamaged); ok {
			frames = append(frames, f)
		}
	}
	return
}

func (r *RtpDepacketizer) flushFrame(complete bool) (f base.Frame, ok bool) {
	defer r.resetFrame()

	if !complete {
		r.incompleteFrames++
		Log.Warnf("[%s] incomplete frame. ts=%d, len=%d, deliver=%t",
			r.uniqueKey, r.frameTs, len(r.frameBuf), r.option.DeliverIncompleteFrames)
		if !r.option.DeliverIncompleteFrames {
			return
		}
	} else {
		r.state.lastCompleteTs = r.frameTs
	}

	f = base.Frame{
		Codec:    r.stream.Codec,
		Payload:  r.frameBuf,
		Pts:      RtpTimestamp2Pts(r.frameTs, r.rtpClock, r.stream.TimeBase),
		Complete: complete,
	}
	return f, true
}

func (r *RtpDepacketizer) resetFrame() {
	r.framePending = false
	r.frameTs = 0
	r.frameDamaged = false
	r.frameBuf = nil
}

// checkSource ssrc防抖
//
// 陌生ssrc的包使resetScore减一，减到0时认为发送源切换；已锁定ssrc的包使resetScore恢复，换了另一个陌生ssrc则重新计数
func (st *recvState) checkSource(ssrc uint32, initScore int) (changed bool, err error) {
	if !st.ssrcLatched {
		st.ssrcLatched = true
		st.remoteSsrc = ssrc
		st.resetScore = initScore
		return false, nil
	}

	if ssrc == st.remoteSsrc {
		st.resetScore = initScore
		st.hasForeign = false
		return false, nil
	}

	if !st.hasForeign || st.foreignSsrc != ssrc {
		st.hasForeign = true
		st.foreignSsrc = ssrc
		st.resetScore = initScore
	}
	st.resetScore--
	if st.resetScore > 0 {
		return false, base.ErrForeignSource
	}
	return true, nil
}

func (st *recvState) calcLost() uint64 {
	expected := st.seqExt.Ext() - st.startSeq + 1
	if expected <= st.received {
		return 0
	}
	return expected - st.received
}

// extendNearby 按离 ref 最近的方向扩展32位时间戳
func extendNearby(ref uint64, ts uint32) uint64 {
	d := int64(int32(ts - LowBits(ref)))
	if d < 0 && uint64(-d) > ref {
		return 0
	}
	return uint64(int64(ref) + d)
}
