package entity

// Bulletin is the validated output of one publication run.
type Bulletin struct {
	Date     string    `json:"date"`
	Source   string    `json:"source"`
	Products []Product `json:"products"`
}
