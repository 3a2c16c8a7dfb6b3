package model

// Exhibition is populated by the batch loader; the stream only references its key.
type Exhibition struct {
	ExhibitionID string `gorm:"column:exhibitionid;primaryKey;size:16"`
	Title        string `gorm:"column:title;size:256"`
	Information  string `gorm:"column:information"`
	StartDate    string `gorm:"column:startdate;size:16"`
	DepartmentID int64  `gorm:"column:departmentid"`
}

func (Exhibition) TableName() string { return "exhibition" }
