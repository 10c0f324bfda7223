package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// text列にJSON配列として保存する文字列リスト。
// sizes/colorsのような小さな選択肢リスト用。
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = StringList{}
		return nil
	}

	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}

	if len(b) == 0 {
		*l = StringList{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*l = StringList(out)
	return nil
}

// vがリストに含まれるか。
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}
