package model

import (
    "database/sql/driver"
    "encoding/json"
    "errors"
)

// StringList 以 JSON 文本落库的字符串列表（图片、标签、分类）
type StringList []string

func (l StringList) Value() (driver.Value, error) {
    if l == nil {
        return "[]", nil
    }
    b, err := json.Marshal(l)
    return string(b), err
}

func (l *StringList) Scan(src any) error {
    switch v := src.(type) {
    case nil:
        *l = nil
        return nil
    case string:
        return json.Unmarshal([]byte(v), l)
    case []byte:
        return json.Unmarshal(v, l)
    default:
        return errors.New("model: unsupported StringList source")
    }
}

// Contains 判断列表是否包含指定元素
func (l StringList) Contains(s string) bool {
    for _, v := range l {
        if v == s {
            return true
        }
    }
    return false
}
