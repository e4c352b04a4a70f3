package models

// Dream is an aspirational goal on the dream board.
type Dream struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Img  string `json:"img,omitempty"` // URL or data URI; empty uses a placeholder
}

// Verse is the inspirational verse shown next to the timer.
type Verse struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
}
