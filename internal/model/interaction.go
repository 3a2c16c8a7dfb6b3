package model

// Times are kept in the database's MM/DD/YY HH:MM:SS text form and handed to
// the driver as parameters; the server coerces them into its timestamp columns.

// Vote is a kiosk rating.
type Vote struct {
	VoteID       int64  `gorm:"column:voteid;primaryKey"`
	ExhibitionID string `gorm:"column:exhibitionid;not null;index"`
	VoteTime     string `gorm:"column:votetime;not null"`
	RatingID     int64  `gorm:"column:ratingid;not null"`
}

func (Vote) TableName() string { return "vote" }

// Assistance is a visitor asking a member of staff for help.
type Assistance struct {
	AssistanceID   int64  `gorm:"column:assistanceid;primaryKey"`
	ExhibitionID   string `gorm:"column:exhibitionid;not null;index"`
	AssistanceTime string `gorm:"column:assistancetime;not null"`
}

func (Assistance) TableName() string { return "assistance" }

// Emergency is a visitor raising an emergency at an exhibition.
type Emergency struct {
	EmergencyID   int64  `gorm:"column:emergencyid;primaryKey"`
	ExhibitionID  string `gorm:"column:exhibitionid;not null;index"`
	EmergencyTime string `gorm:"column:emergencytime;not null"`
}

func (Emergency) TableName() string { return "emergency" }
