// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package stat

import (
	"sync"
	"time"

	"github.com/q191201771/naza/pkg/bitrate"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// IPacketStatistic rtp引擎更新的统计项
//
// 出方向的统计只由打包线程调用，入方向的统计只由解包线程调用
type IPacketStatistic interface {
	OnPacketSent(bytes int)
	OnPacketReceived(bytes int)
	OnPacketLost(count uint64)

	// OnPacketDropped 收到的包格式错误等原因被丢弃
	OnPacketDropped(bytes int)
}

// IJitterStatistic 可选实现，解包时会通过它更新抖动
type IJitterStatistic interface {
	SetJitter(jitter uint32)
}

var (
	_ IPacketStatistic = &PacketStatistic{}
	_ IJitterStatistic = &PacketStatistic{}
)

type StatPacket struct {
	StartTime       string  `json:"start_time"`
	SentPackets     uint64  `json:"sent_packets"`
	SentBytes       uint64  `json:"sent_bytes"`
	ReceivedPackets uint64  `json:"received_packets"`
	ReceivedBytes   uint64  `json:"received_bytes"`
	LostPackets     uint64  `json:"lost_packets"`
	DroppedPackets  uint64  `json:"dropped_packets"`
	Jitter          uint32  `json:"jitter"`       // 单位是rtp时间戳
	SendBitrate     float32 `json:"send_bitrate"` // kbit/s
	RecvBitrate     float32 `json:"recv_bitrate"` // kbit/s
}

// PacketStatistic IPacketStatistic 的默认实现
type PacketStatistic struct {
	startTime string

	sentPackets     nazaatomic.Uint64
	sentBytes       nazaatomic.Uint64
	receivedPackets nazaatomic.Uint64
	receivedBytes   nazaatomic.Uint64
	lostPackets     nazaatomic.Uint64
	droppedPackets  nazaatomic.Uint64
	jitter          nazaatomic.Uint32

	sendBrMu sync.Mutex
	sendBr   bitrate.Bitrate
	recvBrMu sync.Mutex
	recvBr   bitrate.Bitrate
}

func NewPacketStatistic() *PacketStatistic {
	return &PacketStatistic{
		startTime: time.Now().Format("2006-01-02 15:04:05.999"),
		sendBr:    bitrate.New(),
		recvBr:    bitrate.New(),
	}
}

func (s *PacketStatistic) OnPacketSent(bytes int) {
	s.sentPackets.Increment()
	s.sentBytes.Add(uint64(bytes))
	s.sendBrMu.Lock()
	s.sendBr.Add(bytes)
	s.sendBrMu.Unlock()
}

func (s *PacketStatistic) OnPacketReceived(bytes int) {
	s.receivedPackets.Increment()
	s.receivedBytes.Add(uint64(bytes))
	s.recvBrMu.Lock()
	s.recvBr.Add(bytes)
	s.recvBrMu.Unlock()
}

func (s *PacketStatistic) OnPacketLost(count uint64) {
	s.lostPackets.Add(count)
}

func (s *PacketStatistic) OnPacketDropped(bytes int) {
	s.droppedPackets.Increment()
}

func (s *PacketStatistic) SetJitter(jitter uint32) {
	s.jitter.Store(jitter)
}

func (s *PacketStatistic) GetStat() StatPacket {
	ret := StatPacket{
		StartTime:       s.startTime,
		SentPackets:     s.sentPackets.Load(),
		SentBytes:       s.sentBytes.Load(),
		ReceivedPackets: s.receivedPackets.Load(),
		ReceivedBytes:   s.receivedBytes.Load(),
		LostPackets:     s.lostPackets.Load(),
		DroppedPackets:  s.droppedPackets.Load(),
		Jitter:          s.jitter.Load(),
	}
	s.sendBrMu.Lock()
	ret.SendBitrate = float32(s.sendBr.Rate())
	s.sendBrMu.Unlock()
	s.recvBrMu.Lock()
	ret.RecvBitrate = float32(s.recvBr.Rate())
	s.recvBrMu.Unlock()
	return ret
}
