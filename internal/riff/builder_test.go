package riff

import "riffscope/internal/riff/rifftest"

func chunk(tag string, payload []byte) []byte { return rifftest.Chunk(tag, payload) }

func list(typ string, children ...[]byte) []byte { return rifftest.List(typ, children...) }

func container(magic1, magic2 string, chunks ...[]byte) []byte {
	return rifftest.Container(magic1, magic2, chunks...)
}

func avi(chunks ...[]byte) []byte { return rifftest.AVI(chunks...) }
