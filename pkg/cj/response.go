package cj

import (
	"encoding/json"
)

// Response CJ 开放平台统一响应
//
//	{"code":200,"result":true,"message":"Success","data":{...},"requestId":"..."}
type Response struct {
	Code      int             `json:"code"`
	Result    bool            `json:"result"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

// OK 业务是否成功
func (r *Response) OK() bool {
	return r != nil && r.Result && (r.Code == 0 || r.Code == 200)
}

// DataMap 将 data 解析为对象，形状不符时返回 nil
func (r *Response) DataMap() map[string]any {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.Data, &m); err != nil {
		return nil
	}
	return m
}

// DataList 将 data 解析为对象列表
// 兼容三种形状: 直接数组 / {"list":[...]} / {"content":[...]}
func (r *Response) DataList() []map[string]any {
	if r == nil || len(r.Data) == 0 {
		return nil
	}

	var raw []any
	if err := json.Unmarshal(r.Data, &raw); err != nil {
		m := r.DataMap()
		if m == nil {
			return nil
		}
		for _, key := range []string{"list", "content", "records"} {
			if items, ok := m[key].([]any); ok {
				raw = items
				break
			}
		}
	}

	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
