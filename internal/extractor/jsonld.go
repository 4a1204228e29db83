package extractor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsonObject 保留 JSON-LD 对象的键顺序，深度优先查找时“第一个”才有意义
type jsonObject []jsonField

type jsonField struct {
	Key   string
	Value any
}

func (o jsonObject) get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		var obj jsonObject
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("json-ld: unexpected key token %v", kt)
			}
			v, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, jsonField{Key: key, Value: v})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		var arr []any
		for dec.More() {
			v, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("json-ld: unexpected delimiter %v", delim)
	}
}

// findImageInJSONLD 深度优先查找 image 字段，支持字符串、字符串数组、
// {url} 对象数组以及 {url} 对象。
func findImageInJSONLD(v any) string {
	switch t := v.(type) {
	case jsonObject:
		if img, ok := t.get("image"); ok {
			if u := imageValueURL(img); u != "" {
				return u
			}
		}
		for _, f := range t {
			if u := findImageInJSONLD(f.Value); u != "" {
				return u
			}
		}
	case []any:
		for _, item := range t {
			if u := findImageInJSONLD(item); u != "" {
				return u
			}
		}
	}
	return ""
}

func imageValueURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) == 0 {
			return ""
		}
		return imageValueURL(t[0])
	case jsonObject:
		if u, ok := t.get("url"); ok {
			if s, ok := u.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
