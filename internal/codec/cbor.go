// Package codec CBOR 编码，供 HTTP 接口和命令行输出检查结果
package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode 使用 Core Deterministic Encoding：map 键排序、最短整数编码，
// 同样的数据总是得到同样的字节
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal 编码
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal 解码
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder 流式编码器
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// ContentType HTTP 响应类型
const ContentType = "application/cbor"
