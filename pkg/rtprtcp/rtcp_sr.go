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

	"github.com/homer-conferencing/rtpcore/pkg/clock"
	"github.com/homer-conferencing/rtpcore/pkg/hbsync"
)

// RtcpSenderReportProducer 发送端，统计发送的rtp包，并产生rtcp sr包
//
// ntp时间戳 = 打开时的墙上时间 + 打开后经过的单调时间
type RtcpSenderReportProducer struct {
	senderSsrc uint32
	base       time.Time

	pktCnt   uint32
	octetCnt uint32
}

func NewRtcpSenderReportProducer(senderSsrc uint32, base time.Time) *RtcpSenderReportProducer {
	return &RtcpSenderReportProducer{
		senderSsrc: senderSsrc,
		base:       base,
	}
}

// FeedRtpPacket 每发送一个rtp包调用一次
//
// @param payloadLength: rtp负载长度，不含rtp包头，见rfc3550 6.4.1 sender's octet count
func (p *RtcpSenderReportProducer) FeedRtpPacket(payloadLength int) {
	p.pktCnt++
	p.octetCnt += uint32(payloadLength)
}

// MakeSr
//
// @param rtpTs: 当前帧的rtp时间戳
func (p *RtcpSenderReportProducer) MakeSr(now time.Time, rtpTs uint32) Sr {
	ntp := Time2Ntp(p.base.Add(now.Sub(p.base)))
	return Sr{
		SenderSsrc: p.senderSsrc,
		Msw:        uint32(ntp >> 32),
		Lsw:        uint32(ntp),
		Timestamp:  rtpTs,
		PktCnt:     p.pktCnt,
		OctetCnt:   p.octetCnt,
	}
}

// Produce 产生不带report block的sr包，28字节
func (p *RtcpSenderReportProducer) Produce(now time.Time, rtpTs uint32) []byte {
	sr := p.MakeSr(now, rtpTs)
	return sr.Pack()
}

func (p *RtcpSenderReportProducer) PacketCount() uint32 {
	return p.pktCnt
}

func (p *RtcpSenderReportProducer) OctetCount() uint32 {
	return p.octetCnt
}

// ---------------------------------------------------------------------------------------------------------------------

// SyncReference 最近一次收到的sr中的时间戳和计数，作为一个整体读写
type SyncReference struct {
	Valid        bool
	Ntp          uint64
	RtpTimestamp uint32
	PktCnt       uint32
	OctetCnt     uint32
}

type SenderReportResult struct {
	Sr Sr

	// First 是否是第一个sr，第一个sr只用于设置参考值
	First bool

	// EndToEndDelayMicros 收到sr时本地时间和sr中ntp时间的差值，负数按0处理
	EndToEndDelayMicros int64

	PacketsDelta  uint32
	OctetsDelta   uint32
	ReceivedDelta uint64

	// RelativeLoss 平滑后的相对丢包率，[0, 1]
	RelativeLoss float64
}

type RtcpReceiverOption struct {
	Clock clock.Clock

	// LossSmoothingFactor 相对丢包率指数平滑的系数，新值的权重
	LossSmoothingFactor float64
}

var defaultRtcpReceiverOption = RtcpReceiverOption{
	Clock:               clock.NewSystemClock(),
	LossSmoothingFactor: 0.5,
}

type ModRtcpReceiverOption func(option *RtcpReceiverOption)

// RtcpReceiver 接收端，处理收到的rtcp sr包，维护同步参考值
//
// 同步参考值由解包线程写，由其他线程读，都在 mu 保护下进行；每次更新后唤醒 cond 上的等待者
type RtcpReceiver struct {
	option RtcpReceiverOption

	mu   *hbsync.Mutex
	cond *hbsync.Condition

	ref          SyncReference
	lastReceived uint64
	relativeLoss float64
	generation   uint64
}

func NewRtcpReceiver(modOptions ...ModRtcpReceiverOption) *RtcpReceiver {
	option := defaultRtcpReceiverOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.LossSmoothingFactor <= 0 || option.LossSmoothingFactor > 1 {
		Log.Warnf("invalid loss smoothing factor, use default. factor=%f", option.LossSmoothingFactor)
		option.LossSmoothingFactor = defaultRtcpReceiverOption.LossSmoothingFactor
	}

	return &RtcpReceiver{
		option: option,
		mu:     hbsync.NewMutex(),
		cond:   hbsync.NewCondition(),
	}
}

// OnSenderReport
//
// @param b:               rtcp sr包
// @param receivedPackets: 到目前为止收到的rtp包的数量
func (r *RtcpReceiver) OnSenderReport(b []byte, receivedPackets uint64) (ret SenderReportResult, err error) {
	sr, err := ParseSr(b)
	if err != nil {
		return
	}
	ret.Sr = sr

	nowNtp := Time2Ntp(r.option.Clock.Now())
	ret.EndToEndDelayMicros = NtpDiff2Micros(nowNtp, sr.Ntp())
	if ret.EndToEndDelayMicros < 0 {
		ret.EndToEndDelayMicros = 0
	}

	r.mu.Lock()
	if !r.ref.Valid {
		ret.First = true
	} else {
		ret.PacketsDelta = sr.PktCnt - r.ref.PktCnt
		ret.OctetsDelta = sr.OctetCnt - r.ref.OctetCnt
		if receivedPackets > r.lastReceived {
			ret.ReceivedDelta = receivedPackets - r.lastReceived
		}

		sample := CalcLossSample(ret.PacketsDelta, ret.ReceivedDelta)
		factor := r.option.LossSmoothingFactor
		r.relativeLoss = factor*sample + (1-factor)*r.relativeLoss
	}
	ret.RelativeLoss = r.relativeLoss

	r.ref = SyncReference{
		Valid:        true,
		Ntp:          sr.Ntp(),
		RtpTimestamp: sr.Timestamp,
		PktCnt:       sr.PktCnt,
		OctetCnt:     sr.OctetCnt,
	}
	r.lastReceived = receivedPackets
	r.generation++
	r.mu.Unlock()

	r.cond.SignalAll()
	return
}

// CalcLossSample 单个sr间隔内的丢包率，(发送数 - 接收数) / max(1, 发送数)，限制在[0, 1]
func CalcLossSample(packetsDelta uint32, receivedDelta uint64) float64 {
	if receivedDelta >= uint64(packetsDelta) {
		return 0
	}
	sent := float64(packetsDelta)
	if sent < 1 {
		sent = 1
	}
	sample := (float64(packetsDelta) - float64(receivedDelta)) / sent
	if sample > 1 {
		sample = 1
	}
	return sample
}

func (r *RtcpReceiver) GetSynchronizationReference() SyncReference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ref
}

func (r *RtcpReceiver) GetRelativeLoss() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relativeLoss
}

// Generation 收到的sr的数量，用于 WaitUpdate
func (r *RtcpReceiver) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// WaitUpdate 等待收到新的sr
//
// @param generation: 调用方已知的 Generation
// @param timeoutMs:  0表示一直等待
// @param abort:      被唤醒时检查，返回true时立即结束等待，可以为nil
//
// @return 在超时时间内收到了新的sr返回true
func (r *RtcpReceiver) WaitUpdate(generation uint64, timeoutMs int, abort func() bool) bool {
	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for r.generation == generation {
		if abort != nil && abort() {
			return false
		}

		wait := 0
		if timeoutMs > 0 {
			left := time.Until(deadline)
			if left <= 0 {
				return false
			}
			wait = int((left + time.Millisecond - 1) / time.Millisecond)
		}
		r.cond.Wait(r.mu, wait)
	}
	return true
}

// Wakeup 唤醒所有 WaitUpdate 的调用方，让它们重新检查 abort
func (r *RtcpReceiver) Wakeup() {
	// 等正在检查 abort 的调用方进入等待状态
	r.mu.Lock()
	r.mu.Unlock()
	r.cond.SignalAll()
}

// Reset 发送源切换后，丢弃之前的同步参考值
func (r *RtcpReceiver) Reset() {
	r.mu.Lock()
	r.ref = SyncReference{}
	r.lastReceived = 0
	r.relativeLoss = 0
	r.mu.Unlock()
}
