package model

// Rating is a row of the reference table mapping a kiosk button (0-4) to its surrogate key.
type Rating struct {
	RatingID int64  `gorm:"column:ratingid;primaryKey"`
	Rating   int    `gorm:"column:rating;uniqueIndex;not null"`
	Meaning  string `gorm:"column:meaning;size:64"`
}

func (Rating) TableName() string { return "rating" }

// DefaultRatings is the reference data the seeder installs.
var DefaultRatings = []Rating{
	{Rating: 0, Meaning: "Terrible"},
	{Rating: 1, Meaning: "Bad"},
	{Rating: 2, Meaning: "Neutral"},
	{Rating: 3, Meaning: "Good"},
	{Rating: 4, Meaning: "Amazing"},
}
