package models

import "time"

// Word represents a Tamil word in the learning catalog
type Word struct {
	ID              int64      `json:"id" db:"id"`
	TamilWord       string     `json:"tamil_word" db:"tamil_word"`
	Transliteration string     `json:"transliteration" db:"transliteration"`
	Meanings        StringList `json:"meanings" db:"meanings"` // English meanings, first entry is primary
	ExampleTamil    string     `json:"example_tamil" db:"example_tamil"`
	ExampleEnglish  string     `json:"example_english" db:"example_english"`
	Category        string     `json:"category" db:"category"`
	Difficulty      int        `json:"difficulty" db:"difficulty"`         // 1-5 scale of difficulty
	FrequencyRank   int        `json:"frequency_rank" db:"frequency_rank"` // 1 = most common
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// PrimaryMeaning returns the first meaning, or an empty string
func (w *Word) PrimaryMeaning() string {
	if len(w.Meanings) > 0 {
		return w.Meanings[0]
	}
	return ""
}
