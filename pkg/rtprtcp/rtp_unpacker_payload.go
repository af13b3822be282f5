// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/homer-conferencing/rtpcore/pkg/base"
)

// IRtpPayloadDepacketizer 去掉负载头，返回交给解码器的数据
//
// 和pion/rtp的 rtp.Depacketizer 保持一致，这样可以直接使用pion/rtp/codecs中的实现
type IRtpPayloadDepacketizer interface {
	rtp.Depacketizer
}

var (
	_ IRtpPayloadDepacketizer = &RtpUnpackerPayloadH261{}
	_ IRtpPayloadDepacketizer = &RtpUnpackerPayloadH263{}
	_ IRtpPayloadDepacketizer = &RtpUnpackerPayloadH263P{}
	_ IRtpPayloadDepacketizer = &RtpUnpackerPayloadMpa{}
	_ IRtpPayloadDepacketizer = &RtpUnpackerPayloadRaw{}
	_ IRtpPayloadDepacketizer = &codecs.H264Packet{}
	_ IRtpPayloadDepacketizer = &codecs.VP8Packet{}
	_ IRtpPayloadDepacketizer = &codecs.VP9Packet{}
	_ IRtpPayloadDepacketizer = &codecs.OpusPacket{}
)

// NewPayloadDepacketizer 目前支持h261、h263、h263+、h264、vp8、vp9、mpa、opus，其他编码不去除负载头
func NewPayloadDepacketizer(codecId base.CodecId) IRtpPayloadDepacketizer {
	switch codecId {
	case base.CodecIdH261:
		return &RtpUnpackerPayloadH261{}
	case base.CodecIdH263:
		return &RtpUnpackerPayloadH263{}
	case base.CodecIdH263P:
		return &RtpUnpackerPayloadH263P{}
	case base.CodecIdMp3:
		return &RtpUnpackerPayloadMpa{}
	case base.CodecIdH264:
		return &codecs.H264Packet{}
	case base.CodecIdVp8:
		return &codecs.VP8Packet{}
	case base.CodecIdVp9:
		return &codecs.VP9Packet{}
	case base.CodecIdOpus:
		return &codecs.OpusPacket{}
	}
	return &RtpUnpackerPayloadRaw{}
}

// ---------------------------------------------------------------------------------------------------------------------

type RtpUnpackerPayloadH261 struct {
}

func (r *RtpUnpackerPayloadH261) Unmarshal(packet []byte) ([]byte, error) {
	if len(packet) <= h261PayloadHeaderLength {
		return nil, base.NewErrMalformedPacket("short h261 payload", len(packet))
	}
	return packet[h261PayloadHeaderLength:], nil
}

// IsPartitionHead 从字节边界开始，并且以picture start code（20比特，0000 0000 0000 0001 0000）开头
func (r *RtpUnpackerPayloadH261) IsPartitionHead(payload []byte) bool {
	if len(payload) < h261PayloadHeaderLength+3 {
		return false
	}
	sbit := payload[0] >> 5
	b := payload[h261PayloadHeaderLength:]
	return sbit == 0 && b[0] == 0 && b[1] == 1 && b[2]>>4 == 0
}

func (r *RtpUnpackerPayloadH261) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}

// ---------------------------------------------------------------------------------------------------------------------

type RtpUnpackerPayloadH263 struct {
}

// Unmarshal F和P比特决定负载头的长度，见rfc2190 5.
//
// 注意，SBIT或EBIT不为0时不做比特合并
func (r *RtpUnpackerPayloadH263) Unmarshal(packet []byte) ([]byte, error) {
	if len(packet) < 1 {
		return nil, base.NewErrMalformedPacket("short h263 payload", len(packet))
	}

	n := h263PayloadHeaderLength
	if packet[0]&0x80 != 0 {
		if packet[0]&0x40 == 0 {
			n = h263PayloadHeaderLengthModeB
		} else {
			n = h263PayloadHeaderLengthModeC
		}
	}
	if len(packet) <= n {
		return nil, base.NewErrMalformedPacket("short h263 payload", len(packet))
	}
	return packet[n:], nil
}

func (r *RtpUnpackerPayloadH263) IsPartitionHead(payload []byte) bool {
	if len(payload) < h263PayloadHeaderLength+2 {
		return false
	}
	// mode A，picture start code
	return payload[0]&0x80 == 0 && payload[h263PayloadHeaderLength] == 0 && payload[h263PayloadHeaderLength+1] == 0
}

func (r *RtpUnpackerPayloadH263) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}

// ---------------------------------------------------------------------------------------------------------------------

type RtpUnpackerPayloadH263P struct {
}

// Unmarshal P比特为1时恢复起始码的两个0字节，跳过VRC和额外的图像头
func (r *RtpUnpackerPayloadH263P) Unmarshal(packet []byte) ([]byte, error) {
	if len(packet) < h263pPayloadHeaderLength {
		return nil, base.NewErrMalformedPacket("short h263+ payload", len(packet))
	}

	p := packet[0]&0x04 != 0
	v := packet[0]&0x02 != 0
	plen := int(packet[0]&0x01)<<5 | int(packet[1]>>3)

	n := h263pPayloadHeaderLength + plen
	if v {
		n++
	}
	if len(packet) < n {
		return nil, base.NewErrMalformedPacket("short h263+ payload", len(packet))
	}

	if !p {
		return packet[n:], nil
	}
	out := make([]byte, 2+len(packet)-n)
	copy(out[2:], packet[n:])
	return out, nil
}

func (r *RtpUnpackerPayloadH263P) IsPartitionHead(payload []byte) bool {
	return len(payload) >= h263pPayloadHeaderLength && payload[0]&0x04 != 0
}

func (r *RtpUnpackerPayloadH263P) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}

// ---------------------------------------------------------------------------------------------------------------------

type RtpUnpackerPayloadMpa struct {
}

func (r *RtpUnpackerPayloadMpa) Unmarshal(packet []byte) ([]byte, error) {
	if len(packet) <= mpaPayloadHeaderLength {
		return nil, base.NewErrMalformedPacket("short mpa payload", len(packet))
	}
	return packet[mpaPayloadHeaderLength:], nil
}

// IsPartitionHead Frag_offset为0
func (r *RtpUnpackerPayloadMpa) IsPartitionHead(payload []byte) bool {
	return len(payload) >= mpaPayloadHeaderLength && payload[2] == 0 && payload[3] == 0
}

// IsPartitionTail 帧大于mtu时被切分成多个包，marker标识最后一个分片
func (r *RtpUnpackerPayloadMpa) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}

// ---------------------------------------------------------------------------------------------------------------------

// RtpUnpackerPayloadRaw 没有负载头，比如g711、g722、l16
type RtpUnpackerPayloadRaw struct {
}

func (r *RtpUnpackerPayloadRaw) Unmarshal(packet []byte) ([]byte, error) {
	if len(packet) == 0 {
		return nil, base.NewErrMalformedPacket("empty payload", 0)
	}
	return packet, nil
}

func (r *RtpUnpackerPayloadRaw) IsPartitionHead(_ []byte) bool {
	return true
}

func (r *RtpUnpackerPayloadRaw) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}
