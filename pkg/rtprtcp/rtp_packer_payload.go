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
	"github.com/q191201771/naza/pkg/bele"
)

// IRtpPackerPayload 内部打包器使用，将一帧数据切分成多个rtp负载（包含负载头）
type IRtpPackerPayload interface {
	// Pack @param maxSize: 单个rtp负载中帧数据部分（不含rtp包头和负载头）的最大大小
	//
	Pack(in []byte, maxSize int) (out [][]byte)
}

var (
	_ IRtpPackerPayload = &RtpPackerPayloadH261{}

	_ rtp.Payloader = &RtpPackerPayloadMpa{}
	_ rtp.Payloader = &RtpPackerPayloadH263{}
	_ rtp.Payloader = &RtpPackerPayloadH263P{}
	_ rtp.Payloader = &RtpPackerPayloadRaw{}
)

// NewPayloader 通用打包器使用的负载打包器
//
// 优先使用pion/rtp/codecs中的实现，没有的使用本包中的实现
func NewPayloader(codecId base.CodecId) (rtp.Payloader, bool) {
	switch codecId {
	case base.CodecIdPcma, base.CodecIdPcmu:
		return &codecs.G711Payloader{}, true
	case base.CodecIdG722:
		return &codecs.G722Payloader{}, true
	case base.CodecIdOpus:
		return &codecs.OpusPayloader{}, true
	case base.CodecIdH264:
		return &codecs.H264Payloader{}, true
	case base.CodecIdVp8:
		return &codecs.VP8Payloader{EnablePictureID: true}, true
	case base.CodecIdVp9:
		return &codecs.VP9Payloader{}, true
	case base.CodecIdMp3:
		return &RtpPackerPayloadMpa{}, true
	case base.CodecIdH263:
		return &RtpPackerPayloadH263{}, true
	case base.CodecIdH263P:
		return &RtpPackerPayloadH263P{}, true
	case base.CodecIdGsm, base.CodecIdL16, base.CodecIdSpeex:
		return &RtpPackerPayloadRaw{}, true
	}
	return nil, false
}

// ---------------------------------------------------------------------------------------------------------------------

// rfc4587 4.1 H.261 payload header
//
//  0                   1                   2                   3
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |SBIT |EBIT |I|V| GOBN  |   MBAP  |  QUANT  |  HMVD   |  VMVD   |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// 按字节切分，SBIT和EBIT都为0，不解析码流，V置1（可能包含运动矢量），其他字段为0

const h261PayloadHeaderLength = 4

type RtpPackerPayloadH261 struct {
}

func NewRtpPackerPayloadH261() *RtpPackerPayloadH261 {
	return &RtpPackerPayloadH261{}
}

func (r *RtpPackerPayloadH261) Pack(in []byte, maxSize int) (out [][]byte) {
	if len(in) == 0 || maxSize <= 0 {
		return
	}

	for index := 0; index < len(in); index += maxSize {
		end := index + maxSize
		if end > len(in) {
			end = len(in)
		}
		item := make([]byte, h261PayloadHeaderLength+end-index)
		item[0] = 0x01 // V
		copy(item[h261PayloadHeaderLength:], in[index:end])
		out = append(out, item)
	}
	return
}

// ---------------------------------------------------------------------------------------------------------------------

// rfc2250 3.5 MPEG Audio-specific header
//
//  0                   1                   2                   3
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |             MBZ               |          Frag_offset          |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

const mpaPayloadHeaderLength = 4

type RtpPackerPayloadMpa struct {
}

func (r *RtpPackerPayloadMpa) Payload(mtu uint16, payload []byte) (out [][]byte) {
	maxSize := int(mtu) - mpaPayloadHeaderLength
	if len(payload) == 0 || maxSize <= 0 {
		return
	}

	for index := 0; index < len(payload); index += maxSize {
		end := index + maxSize
		if end > len(payload) {
			end = len(payload)
		}
		item := make([]byte, mpaPayloadHeaderLength+end-index)
		bele.BePutUint16(item[2:], uint16(index))
		copy(item[mpaPayloadHeaderLength:], payload[index:end])
		out = append(out, item)
	}
	return
}

// ---------------------------------------------------------------------------------------------------------------------

// rfc2190 5.1 H.263 payload header mode A
//
//  0                   1                   2                   3
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |F|P|SBIT |EBIT | SRC |I|U|S|A|R      |DBQ| TRB |    TR         |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// 只使用mode A，按字节切分

const (
	h263PayloadHeaderLength      = 4
	h263PayloadHeaderLengthModeB = 8
	h263PayloadHeaderLengthModeC = 12
)

type RtpPackerPayloadH263 struct {
}

func (r *RtpPackerPayloadH263) Payload(mtu uint16, payload []byte) (out [][]byte) {
	maxSize := int(mtu) - h263PayloadHeaderLength
	if len(payload) == 0 || maxSize <= 0 {
		return
	}

	for index := 0; index < len(payload); index += maxSize {
		end := index + maxSize
		if end > len(payload) {
			end = len(payload)
		}
		item := make([]byte, h263PayloadHeaderLength+end-index)
		copy(item[h263PayloadHeaderLength:], payload[index:end])
		out = append(out, item)
	}
	return
}

// ---------------------------------------------------------------------------------------------------------------------

// rfc4629 5.1 H.263+ payload header
//
//  0                   1
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |   RR    |P|V|   PLEN    |PEBIT|
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// 帧以两个0字节的起始码开头时，P置1并且去掉这两个字节，解包时恢复

const h263pPayloadHeaderLength = 2

type RtpPackerPayloadH263P struct {
}

func (r *RtpPackerPayloadH263P) Payload(mtu uint16, payload []byte) (out [][]byte) {
	maxSize := int(mtu) - h263pPayloadHeaderLength
	if len(payload) == 0 || maxSize <= 0 {
		return
	}

	var first byte
	if len(payload) > 2 && payload[0] == 0 && payload[1] == 0 {
		first = 0x04 // P
		payload = payload[2:]
	}

	for index := 0; index < len(payload); index += maxSize {
		end := index + maxSize
		if end > len(payload) {
			end = len(payload)
		}
		item := make([]byte, h263pPayloadHeaderLength+end-index)
		if index == 0 {
			item[0] = first
		}
		copy(item[h263pPayloadHeaderLength:], payload[index:end])
		out = append(out, item)
	}
	return
}

// ---------------------------------------------------------------------------------------------------------------------

// RtpPackerPayloadRaw 没有负载头的音频，比如L16、GSM、Speex
type RtpPackerPayloadRaw struct {
}

func (r *RtpPackerPayloadRaw) Payload(mtu uint16, payload []byte) (out [][]byte) {
	maxSize := int(mtu)
	if len(payload) == 0 || maxSize <= 0 {
		return
	}

	if len(payload) > maxSize {
		Log.Warnf("frame size bigger than rtp payload size while packing. len(in)=%d, maxSize=%d", len(payload), maxSize)
	}

	for index := 0; index < len(payload); index += maxSize {
		end := index + maxSize
		if end > len(payload) {
			end = len(payload)
		}
		item := make([]byte, end-index)
		copy(item, payload[index:end])
		out = append(out, item)
	}
	return
}
