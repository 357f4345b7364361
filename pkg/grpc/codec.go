package grpc

import (
	"encoding/json"
	"fmt"
)

// CodecName 在 content-type 中的名稱 (application/grpc+json)
const CodecName = "json"

// JSONCodec 以 JSON 編碼 gRPC 訊息
// 訊息型別是一般的 Go struct，不需要 protoc 產生的程式碼
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal %T: %w", v, err)
	}
	return b, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal %T: %w", v, err)
	}
	return nil
}

func (JSONCodec) Name() string {
	return CodecName
}
