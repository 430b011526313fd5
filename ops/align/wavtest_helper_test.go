package align

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
	iartBody := []byte("AudioMoth 0000000000000000")
	listBody := append(append([]byte("INFO"), chunk("IART", iartBody)...), chunk("ICMT", icmtBody)...)

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
