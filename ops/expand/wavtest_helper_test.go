package expand

import "encoding/binary"

func buildWAV(comment string, commentCap int, sampleRate uint32, data []byte) []byte {
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1)
	binary.LittleEndian.PutUint16(fmtBody[2:4], 1)
	binary.LittleEndian.PutUint32(fmtBody[4:8], sampleRate)
	binary.LittleEndian.PutUint32(fmtBody[8:12], sampleRate*2)
	binary.LittleEndian.PutUint16(fmtBody[12:14], 2)
	binary.LittleEndian.PutUint16(fmtBody[14:16], 16)

	icmtBody := make([]byte, commentCap)
	copy(icmtBody, comment)
	listBody := append([]byte("INFO"), chunk("ICMT", icmtBody)...)

	var body []byte
	body = append(body, chunk("fmt ", fmtBody)...)
	body = append(body, chunk("LIST", listBody)...)
	body = append(body, chunk("data", data)...)

	var b []byte
	b = append(b, []byte("RIFF")...)
	b = append(b, u32(uint32(4+len(body)))...)
	b = append(b, []byte("WAVE")...)
	b = append(b, body...)
	return b
}

func buildWAVWithGuano(comment string, commentCap int, sampleRate uint32, data []byte, guanoText string) []byte {
	b := buildWAV(comment, commentCap, sampleRate, data)
	b = append(b, []byte("guan")...)
	b = append(b, u32(uint32(len(guanoText)))...)
	b = append(b, []byte(guanoText)...)
	if len(guanoText)%2 == 1 {
		b = append(b, 0)
	}
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
