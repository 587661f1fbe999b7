package riff

// 块/列表标签
var (
	TagLIST = NewFourCC("LIST")
	TagINFO = NewFourCC("INFO")
	TagNcdt = NewFourCC("ncdt")
	TagMovi = NewFourCC("movi")
	TagHdrl = NewFourCC("hdrl")
	TagStrl = NewFourCC("strl")
	TagOdml = NewFourCC("odml")
	TagRec  = NewFourCC("rec ")
	TagJUNK = NewFourCC("JUNK")
	TagIdx1 = NewFourCC("idx1")
)

// ListKind 列表变体
type ListKind uint8

const (
	// ListDefault 结构上是列表，但本层不展开子块
	ListDefault ListKind = iota
	// ListMovi 媒体数据列表，子块递归解析
	ListMovi
)

func (k ListKind) String() string {
	switch k {
	case ListMovi:
		return "movi"
	default:
		return "default"
	}
}

// List LIST 块的解释结果
type List struct {
	Kind ListKind
	Type FourCC
	// Remaining 列表类型之后可供子块解析的字节数 (size - 4)
	Remaining uint32
	// Children 仅 movi 列表有值，按文件顺序
	Children []Block
}

// knownListTypes 不展开但也不算未知的列表类型
var knownListTypes = map[FourCC]ListKind{
	TagINFO: ListDefault,
	TagNcdt: ListDefault,
	TagHdrl: ListDefault,
	TagStrl: ListDefault,
	TagOdml: ListDefault,
	TagRec:  ListDefault,
	TagMovi: ListMovi,
}

// IsKnownListType 列表类型是否被识别
func IsKnownListType(t FourCC) bool {
	_, ok := knownListTypes[t]
	return ok
}

// dispatchList 读取列表类型并决定变体，payload 为 LIST 块的完整负载
func dispatchList(payload []byte, strict bool) (List, error) {
	typ, _, err := NewCursor(payload, 0).FourCC()
	if err != nil {
		return List{}, ErrShortList
	}

	l := List{Type: typ, Remaining: uint32(len(payload) - 4)}
	kind, ok := knownListTypes[typ]
	if !ok {
		if strict {
			return l, ErrUnknownListType
		}
		kind = ListDefault
	}
	l.Kind = kind
	return l, nil
}
