package wav

import "encoding/binary"

// buildWAV assembles a minimal but complete RIFF/WAVE file for tests: a
// fmt  chunk, a LIST/INFO chunk with ICMT and IART subchunks, a data chunk
// containing dataLen zero bytes, and (if guano is non-empty) a trailing
// guan chunk.
func buildWAV(sampleRate uint32, comment, artist string, icmtCap, iartCap int, dataLen int, guano string) []byte {
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(fmtBody[2:4], 1) // mono
	binary.LittleEndian.PutUint32(fmtBody[4:8], sampleRate)
	binary.LittleEndian.PutUint32(fmtBody[8:12], sampleRate*2)
	binary.LittleEndian.PutUint16(fmtBody[12:14], 2)
	binary.LittleEndian.PutUint16(fmtBody[14:16], 16)

	icmtBuf := make([]byte, icmtCap)
	copy(icmtBuf, comment)
	iartBuf := make([]byte, iartCap)
	copy(iartBuf, artist)

	var listBody []byte
	listBody = append(listBody, "INFO"...)
	var icmtChunk []byte
	icmtChunk = append(icmtChunk, "ICMT"...)
	sz := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz, uint32(icmtCap))
	icmtChunk = append(icmtChunk, sz...)
	icmtChunk = append(icmtChunk, icmtBuf...)
	if icmtCap%2 == 1 {
		icmtChunk = append(icmtChunk, 0)
	}
	listBody = append(listBody, icmtChunk...)

	var iartChunk []byte
	iartChunk = append(iartChunk, "IART"...)
	sz2 := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz2, uint32(iartCap))
	iartChunk = append(iartChunk, sz2...)
	iartChunk = append(iartChunk, iartBuf...)
	if iartCap%2 == 1 {
		iartChunk = append(iartChunk, 0)
	}
	listBody = append(listBody, iartChunk...)

	var riffBody []byte
	riffBody = append(riffBody, "WAVE"...)
	riffBody = append(riffBody, chunkBytes("fmt ", fmtBody)...)
	riffBody = append(riffBody, chunkBytes("LIST", listBody)...)

	data := make([]byte, dataLen)
	riffBody = append(riffBody, chunkBytes("data", data)...)

	if guano != "" {
		riffBody = append(riffBody, chunkBytes("guan", []byte(guano))...)
	}

	out := append([]byte("RIFF"), lenBytes(len(riffBody))...)
	out = append(out, riffBody...)
	return out
}

func chunkBytes(id string, body []byte) []byte {
	out := append([]byte(id), lenBytes(len(body))...)
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func lenBytes(n int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}
