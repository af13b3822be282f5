// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp_test

import (
	"testing"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/assert"
)

func TestPayloadTypeMapping(t *testing.T) {
	golden := map[string]uint8{
		"PCMU": 0,
		"GSM":  3,
		"PCMA": 8,
		"G722": 9,
		"MPA":  14,
		"H261": 31,
		"H263": 34,
	}
	for name, id := range golden {
		v, ok := rtprtcp.CodecToPayloadId(name)
		assert.Equal(t, true, ok)
		assert.Equal(t, id, v)
		assert.Equal(t, name, rtprtcp.PayloadIdToCodec(id))
		assert.Equal(t, true, rtprtcp.IsPayloadSupported(name))
	}

	v, ok := rtprtcp.CodecToPayloadId("h264")
	assert.Equal(t, true, ok)
	assert.Equal(t, true, v >= rtprtcp.PayloadTypeDynamicMin && v <= rtprtcp.PayloadTypeDynamicMax)

	_, ok = rtprtcp.CodecToPayloadId("NOTACODEC")
	assert.Equal(t, false, ok)
	assert.Equal(t, false, rtprtcp.IsPayloadSupported("NOTACODEC"))
	assert.Equal(t, "", rtprtcp.PayloadIdToCodec(127))
	assert.Equal(t, "dynamic", rtprtcp.PayloadTypeName(127))
	assert.Equal(t, "unknown", rtprtcp.PayloadTypeName(50))
	assert.Equal(t, "H.261 video", rtprtcp.PayloadTypeName(31))
}

func TestCodecIdMapping(t *testing.T) {
	for _, c := range []base.CodecId{base.CodecIdH261, base.CodecIdH263P, base.CodecIdVp8, base.CodecIdOpus, base.CodecIdMp3} {
		id, ok := rtprtcp.CodecIdToPayloadId(c)
		assert.Equal(t, true, ok)
		assert.Equal(t, c, rtprtcp.PayloadIdToCodecId(id))
	}
	_, ok := rtprtcp.CodecIdToPayloadId(base.CodecIdUnknown)
	assert.Equal(t, false, ok)
	assert.Equal(t, base.CodecIdUnknown, rtprtcp.PayloadIdToCodecId(120))
}

func TestHeaderSizeMax(t *testing.T) {
	assert.Equal(t, 4, rtprtcp.GetPayloadHeaderSizeMax(base.CodecIdH261))
	assert.Equal(t, 2, rtprtcp.GetPayloadHeaderSizeMax(base.CodecIdH263P))
	assert.Equal(t, 0, rtprtcp.GetPayloadHeaderSizeMax(base.CodecIdPcmu))
	assert.Equal(t, 16, rtprtcp.GetHeaderSizeMax(base.CodecIdH261))
	assert.Equal(t, 16, rtprtcp.GetHeaderSizeMax(base.CodecIdMp3))
	assert.Equal(t, 12, rtprtcp.GetHeaderSizeMax(base.CodecIdOpus))
}
