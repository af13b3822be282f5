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

// OutPacket 打包器产生的一个udp数据报
type OutPacket struct {
	Raw    []byte
	IsRtcp bool
}

// PacketBlob 一次打包调用产生的所有数据报，按发送顺序排列
//
// 打包器不做任何网络io，由调用方逐个发送 Packets
type PacketBlob struct {
	Packets []OutPacket
}

func (pb *PacketBlob) appendRtp(raw []byte) {
	pb.Packets = append(pb.Packets, OutPacket{Raw: raw})
}

func (pb *PacketBlob) appendRtcp(raw []byte) {
	pb.Packets = append(pb.Packets, OutPacket{Raw: raw, IsRtcp: true})
}

func (pb PacketBlob) Len() int {
	return len(pb.Packets)
}

// RtpPackets 只包含rtp包，不包含rtcp包
func (pb PacketBlob) RtpPackets() [][]byte {
	var ret [][]byte
	for _, p := range pb.Packets {
		if !p.IsRtcp {
			ret = append(ret, p.Raw)
		}
	}
	return ret
}

// Bytes 序列化成内存中的包流格式：
//
// [4字节大端长度][数据报] [4字节大端长度][数据报] ...
func (pb PacketBlob) Bytes() []byte {
	var n int
	for _, p := range pb.Packets {
		n += 4 + len(p.Raw)
	}
	out := make([]byte, n)
	var index int
	for _, p := range pb.Packets {
		bele.BePutUint32(out[index:], uint32(len(p.Raw)))
		index += 4
		copy(out[index:], p.Raw)
		index += len(p.Raw)
	}
	return out
}

// ParsePacketBlob Bytes 的逆操作，是否是rtcp包通过第二个字节判断
func ParsePacketBlob(b []byte) (pb PacketBlob, err error) {
	for index := 0; index < len(b); {
		if len(b)-index < 4 {
			err = base.ErrShortBuffer
			return
		}
		l := int(bele.BeUint32(b[index:]))
		index += 4
		if len(b)-index < l {
			err = base.ErrShortBuffer
			return
		}
		raw := make([]byte, l)
		copy(raw, b[index:index+l])
		index += l
		pb.Packets = append(pb.Packets, OutPacket{Raw: raw, IsRtcp: IsRtcpPacketType(raw)})
	}
	return
}
