package models

// Setting is a single key/value configuration row. Last write wins.
type Setting struct {
	Key   string `json:"key" gorm:"column:setting_key;primaryKey;size:100"`
	Value string `json:"value" gorm:"column:setting_value;type:text;not null"`
}
