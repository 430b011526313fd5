package downsample

import "encoding/binary"

func buildWAV(sampleRate uint32, data []byte) []byte {
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1)
	binary.LittleEndian.PutUint16(fmtBody[2:4], 1)
	binary.LittleEndian.PutUint32(fmtBody[4:8], sampleRate)
	binary.LittleEndian.PutUint32(fmtBody[8:12], sampleRate*2)
	binary.LittleEndian.PutUint16(fmtBody[12:14], 2)
	binary.LittleEndian.PutUint16(fmtBody[14:16], 16)

	var body []byte
	body = append(body, chunk("fmt ", fmtBody)...)
	body = append(body, chunk("data", data)...)

	var b []byte
	b = append(b, []byte("RIFF")...)
	b = append(b, u32(uint32(4+len(body)))...)
	b = append(b, []byte("WAVE")...)
	b = append(b, body...)
	return b
}

func chunk(id string, body []byte) []byte {
	var c []byte
	c = append(c, []byte(id)...)
	c = append(c, u32(uint32(len(body)))...)
	c = append(c, body...)
	if len(body)%2 == 1 {
		c = append(c, 0)
	}
	return c
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func putSample(data []byte, i int, v int16) {
	binary.LittleEndian.PutUint16(data[i*2:i*2+2], uint16(v))
}

func getSample(data []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
}
