package models

// Counter is a named, persistently stored integer used to mint unique
// sequential order codes. Seq holds the last issued value; allocation is a
// single atomic increment-and-fetch at the storage layer.
type Counter struct {
	Name string `json:"name" gorm:"primaryKey;type:varchar(64)"`
	Seq  int64  `json:"seq"`
}
