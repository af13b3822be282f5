// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtpsession

import (
	"sync"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/clock"
	"github.com/homer-conferencing/rtpcore/pkg/rtprtcp"
	"github.com/homer-conferencing/rtpcore/pkg/stat"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// Session 一个对端的rtp会话，组合了打包器、解包器和rtcp同步状态
//
// 状态：Closed -> Opened -> Closed，只有Opened状态可以收发包
//
// 发送方向（Create）和接收方向（Parse）各有一把锁，可以分别在两个线程中调用
type Session struct {
	uniqueKey string
	option    SessionOption

	sendMu     sync.Mutex
	packetizer *rtprtcp.RtpPacketizer

	recvMu       sync.Mutex
	depacketizer *rtprtcp.RtpDepacketizer
	rtcpReceiver *rtprtcp.RtcpReceiver
	statistic    stat.IPacketStatistic

	stream     base.StreamInfo
	opened     nazaatomic.Bool
	active     nazaatomic.Bool
	srcChanged nazaatomic.Bool
}

type SessionOption struct {
	Clock clock.Clock

	H261PayloadSizeMax     int
	Mtu                    int
	SenderReportIntervalMs int

	ResetScore              int
	DeliverIncompleteFrames bool
	LossSmoothingFactor     float64

	DebugDumpPacket int
}

var defaultSessionOption = SessionOption{
	Clock:                   clock.NewSystemClock(),
	H261PayloadSizeMax:      0,
	Mtu:                     base.DefaultGenericMtu,
	SenderReportIntervalMs:  base.SenderReportIntervalMs,
	ResetScore:              base.DefaultResetScore,
	DeliverIncompleteFrames: true,
	LossSmoothingFactor:     0.5,
	DebugDumpPacket:         10,
}

type ModSessionOption func(option *SessionOption)

func NewSession(modOptions ...ModSessionOption) *Session {
	option := defaultSessionOption
	for _, fn := range modOptions {
		fn(&option)
	}

	uk := base.GenUkRtpSession()
	s := &Session{
		uniqueKey: uk,
		option:    option,
	}
	s.packetizer = rtprtcp.NewRtpPacketizer(uk, func(o *rtprtcp.RtpPacketizerOption) {
		o.H261PayloadSizeMax = option.H261PayloadSizeMax
		o.Mtu = option.Mtu
		o.SenderReportIntervalMs = option.SenderReportIntervalMs
		o.Clock = option.Clock
		o.DebugDumpPacket = option.DebugDumpPacket
	})
	s.rtcpReceiver = rtprtcp.NewRtcpReceiver(func(o *rtprtcp.RtcpReceiverOption) {
		o.Clock = option.Clock
		o.LossSmoothingFactor = option.LossSmoothingFactor
	})
	Log.Infof("[%s] lifecycle new rtp session. session=%p", uk, s)
	return s
}

// Open 所有计数清零
func (s *Session) Open(targetHost string, targetPort int, stream base.StreamInfo) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if s.opened.Load() {
		return base.ErrAlreadyOpen
	}

	depacketizer, err := rtprtcp.NewRtpDepacketizer(s.uniqueKey, stream, func(o *rtprtcp.RtpDepacketizerOption) {
		o.ResetScore = s.option.ResetScore
		o.DeliverIncompleteFrames = s.option.DeliverIncompleteFrames
		o.Clock = s.option.Clock
		o.DebugDumpPacket = s.option.DebugDumpPacket
	})
	if err != nil {
		return err
	}
	if err = s.packetizer.Open(targetHost, targetPort, stream); err != nil {
		return err
	}

	s.depacketizer = depacketizer
	s.depacketizer.SetPacketStatistic(s.statistic)
	s.packetizer.SetPacketStatistic(s.statistic)
	s.rtcpReceiver.Reset()
	s.stream = stream
	s.active.Store(false)
	s.srcChanged.Store(false)
	s.opened.Store(true)
	Log.Infof("[%s] lifecycle open rtp session. target=%s:%d, codec=%s", s.uniqueKey, targetHost, targetPort, stream.Codec.ReadableString())
	return nil
}

// Close 返回打包器的结尾数据（rtcp bye），并唤醒 WaitSynchronization 的调用方
//
// 可以重复调用，第二次调用返回空的blob
func (s *Session) Close() (blob rtprtcp.PacketBlob, err error) {
	s.sendMu.Lock()
	s.recvMu.Lock()
	if !s.opened.Load() {
		s.recvMu.Unlock()
		s.sendMu.Unlock()
		return
	}
	s.opened.Store(false)
	blob, err = s.packetizer.Close()
	s.recvMu.Unlock()
	s.sendMu.Unlock()

	s.rtcpReceiver.Wakeup()
	Log.Infof("[%s] lifecycle close rtp session.", s.uniqueKey)
	return
}

// Create 打包一帧数据，打包失败时会话保持打开
func (s *Session) Create(frame []byte, pts int64) (rtprtcp.PacketBlob, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.opened.Load() {
		return rtprtcp.PacketBlob{}, base.ErrNotOpen
	}
	blob, err := s.packetizer.Create(frame, pts)
	if err != nil {
		return blob, err
	}
	s.active.Store(true)
	return blob, nil
}

// Parse 处理收到的数据报，rtcp sr被交给rtcp同步状态处理
//
// @return err: 被丢弃的包返回对应的错误，已经计入统计，调用方只需打印日志
func (s *Session) Parse(datagram []byte, readOnly bool) (ret rtprtcp.ParseResult, err error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if !s.opened.Load() {
		err = base.ErrNotOpen
		return
	}

	ret, err = s.depacketizer.Parse(datagram, readOnly)
	if err != nil {
		return
	}

	if ret.IsSenderReport && !readOnly {
		srRet, srErr := s.rtcpReceiver.OnSenderReport(ret.Payload, s.depacketizer.GetReceivedPackets())
		if srErr != nil {
			if s.statistic != nil {
				s.statistic.OnPacketDropped(len(datagram))
			}
			return ret, srErr
		}
		Log.Debugf("[%s] sender report. ssrc=%d, delay=%dus, packets=%d, relative loss=%.3f",
			s.uniqueKey, srRet.Sr.SenderSsrc, srRet.EndToEndDelayMicros, srRet.PacketsDelta, srRet.RelativeLoss)
	}

	if ret.SourceChanged && !readOnly {
		s.rtcpReceiver.Reset()
		s.srcChanged.Store(true)
	}
	if !readOnly && !ret.IsRtcp {
		s.active.Store(true)
	}
	return
}

// RegisterPacketStatistic 可以在 Open 之前或之后调用
func (s *Session) RegisterPacketStatistic(statistic stat.IPacketStatistic) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	s.statistic = statistic
	s.packetizer.SetPacketStatistic(statistic)
	if s.depacketizer != nil {
		s.depacketizer.SetPacketStatistic(statistic)
	}
}

// GetPayloadType 负载类型，未打开时返回0
func (s *Session) GetPayloadType() uint8 {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.packetizer.GetPayloadId()
}

func (s *Session) GetLostPackets() uint64 {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	if s.depacketizer == nil {
		return 0
	}
	return s.depacketizer.GetLostPackets()
}

func (s *Session) GetRelativeLoss() float64 {
	return s.rtcpReceiver.GetRelativeLoss()
}

// GetSynchronizationReference 最近一次收到的sr中的ntp时间戳，以及对应的rtp时间戳换算成的pts
//
// 还没有收到sr时 ntp 返回0
func (s *Session) GetSynchronizationReference() (ntp uint64, pts int64) {
	ref := s.rtcpReceiver.GetSynchronizationReference()
	if !ref.Valid {
		return 0, 0
	}

	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	if s.depacketizer == nil {
		return ref.Ntp, 0
	}
	ext := s.depacketizer.ExtendReferenceTimestamp(ref.RtpTimestamp)
	pts = rtprtcp.RtpTimestamp2Pts(ext, s.depacketizer.GetRtpClockRate(), s.stream.TimeBase)
	return ref.Ntp, pts
}

// HasSourceChanged 发送源是否切换过，调用后事件被清除
func (s *Session) HasSourceChanged() bool {
	return s.srcChanged.CompareAndSwap(true, false)
}

// WaitSynchronization 等待收到新的rtcp sr
//
// @param timeoutMs: 0表示一直等待
//
// @return 收到新的sr返回true；超时或会话被关闭返回false
func (s *Session) WaitSynchronization(timeoutMs int) bool {
	if !s.opened.Load() {
		return false
	}
	gen := s.rtcpReceiver.Generation()
	ok := s.rtcpReceiver.WaitUpdate(gen, timeoutMs, func() bool {
		return !s.opened.Load()
	})
	return ok && s.opened.Load()
}

// IsActive 打开后是否成功发送或接收过rtp包
func (s *Session) IsActive() bool {
	return s.active.Load()
}

func (s *Session) IsOpen() bool {
	return s.opened.Load()
}

func (s *Session) UniqueKey() string {
	return s.uniqueKey
}

// GetLocalSsrc 未打开时返回0
func (s *Session) GetLocalSsrc() uint32 {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.packetizer.GetLocalSsrc()
}

func (s *Session) GetRemoteSsrc() uint32 {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	if s.depacketizer == nil {
		return 0
	}
	return s.depacketizer.GetRemoteSsrc()
}

func (s *Session) GetCurrentPts() int64 {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	if s.depacketizer == nil {
		return 0
	}
	return s.depacketizer.GetCurrentPts()
}

// CalculateClockRateFactor rtp时钟和编解码层时钟的比例
func (s *Session) CalculateClockRateFactor() float64 {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	return rtprtcp.CalculateClockRateFactor(rtprtcp.GetRtpClockRate(s.stream), s.stream.TimeBase)
}
