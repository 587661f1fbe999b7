// Package rifftest 构造测试用的 RIFF 容器字节
package rifftest

import (
	"bytes"
	"encoding/binary"
)

// Chunk 构造一个块，奇数长度自动补一个填充字节
func Chunk(tag string, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString(tag)
	binary.Write(&b, binary.LittleEndian, uint32(len(payload)))
	b.Write(payload)
	if len(payload)%2 == 1 {
		b.WriteByte(0)
	}
	return b.Bytes()
}

// List 构造 LIST 块
func List(typ string, children ...[]byte) []byte {
	body := []byte(typ)
	for _, c := range children {
		body = append(body, c...)
	}
	return Chunk("LIST", body)
}

// Container 构造容器头 + 块，FileSize 取真实长度
func Container(magic1, magic2 string, chunks ...[]byte) []byte {
	body := []byte(magic2)
	for _, c := range chunks {
		body = append(body, c...)
	}
	var b bytes.Buffer
	b.WriteString(magic1)
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	b.Write(body)
	return b.Bytes()
}

// AVI 构造 RIFF/AVI 容器
func AVI(chunks ...[]byte) []byte {
	return Container("RIFF", "AVI ", chunks...)
}

// SampleAVI 一个结构完整的小文件：hdrl、INFO、两路流的 movi、idx1
func SampleAVI() []byte {
	return AVI(
		List("hdrl",
			Chunk("avih", make([]byte, 56)),
			List("strl", Chunk("strh", make([]byte, 56)), Chunk("strf", make([]byte, 40))),
		),
		List("INFO", Chunk("ISFT", []byte("riffscope\x00"))),
		Chunk("JUNK", make([]byte, 13)),
		List("movi",
			Chunk("00dc", []byte("key-frame")),
			Chunk("01wb", []byte("pcm!")),
			Chunk("00dc", []byte("p-frame")),
			Chunk("01wb", []byte("pcm")),
		),
		Chunk("idx1", make([]byte, 64)),
	)
}
