package filename

import "encoding/binary"

// wavtestBuild assembles a minimal mono 16-bit PCM WAV header carrying the
// given ICMT comment and IART artist text, with a zero-length data chunk.
func wavtestBuild(comment, artist string) ([]byte, error) {
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(fmtBody[2:4], 1) // mono
	binary.LittleEndian.PutUint32(fmtBody[4:8], 48000)
	binary.LittleEndian.PutUint32(fmtBody[8:12], 96000)
	binary.LittleEndian.PutUint16(fmtBody[12:14], 2)
	binary.LittleEndian.PutUint16(fmtBody[14:16], 16)

	icmt := textChunk("ICMT", comment)
	iart := textChunk("IART", artist)
	info := append([]byte("INFO"), append(icmt, iart...)...)
	list := chunk("LIST", info)

	var body []byte
	body = append(body, chunk("fmt ", fmtBody)...)
	body = append(body, list...)
	body = append(body, chunk("data", nil)...)

	var b []byte
	b = append(b, []byte("RIFF")...)
	b = append(b, u32(uint32(4+len(body)))...)
	b = append(b, []byte("WAVE")...)
	b = append(b, body...)
	return b, nil
}

func textChunk(id, text string) []byte {
	body := []byte(text)
	if len(body)%2 == 1 {
		body = append(body, 0)
	}
	return chunk(id, body)
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
