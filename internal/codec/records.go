package codec

import (
	"riffscope/internal/avi"
	"riffscope/internal/models"
)

// Record ChunkRecord 的可序列化形式
type Record struct {
	Index    int    `json:"index" cbor:"index"`
	Offset   uint64 `json:"offset" cbor:"offset"`
	Size     uint32 `json:"size" cbor:"size"`
	Tag      string `json:"tag" cbor:"tag"`
	ListType string `json:"listType,omitempty" cbor:"listType,omitempty"`
	Parent   int32  `json:"parent" cbor:"parent"`
	Depth    uint16 `json:"depth" cbor:"depth"`
	Kind     string `json:"kind" cbor:"kind"`
}

// Document 一个文件的完整输出
type Document struct {
	*avi.Inspection
	Chunks []Record `json:"chunks" cbor:"chunks"`
}

// KindName 记录类型名
func KindName(k uint16) string {
	switch k {
	case models.KindList:
		return "list"
	case models.KindMovi:
		return "movi"
	default:
		return "chunk"
	}
}

// Records 转换 [from, to) 范围内的记录
func Records(records []models.ChunkRecord, from, to int) []Record {
	if from < 0 {
		from = 0
	}
	if to > len(records) {
		to = len(records)
	}
	if from >= to {
		return []Record{}
	}

	out := make([]Record, 0, to-from)
	for i := from; i < to; i++ {
		r := &records[i]
		out = append(out, Record{
			Index:    i,
			Offset:   r.Offset,
			Size:     r.Size,
			Tag:      r.TagString(),
			ListType: r.ListTypeString(),
			Parent:   r.Parent,
			Depth:    r.Depth,
			Kind:     KindName(r.Kind),
		})
	}
	return out
}

// NewDocument 组装完整输出
func NewDocument(in *avi.Inspection) Document {
	return Document{
		Inspection: in,
		Chunks:     Records(in.Records, 0, len(in.Records)),
	}
}
