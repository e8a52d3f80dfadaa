// Package schema defines the validated request and response records
// exchanged with the recommendation agents.
package schema

// BookQuery is the free-text reading intent a user types in.
type BookQuery struct {
	Thought string `json:"thought" validate:"notblank,min=3"`
}

// BookRecommendation is a single recommended book.
type BookRecommendation struct {
	Title       string `json:"title" validate:"required,notblank"`
	Author      string `json:"author" validate:"required,notblank"`
	Genre       string `json:"genre" validate:"required,notblank"`
	Description string `json:"description" validate:"required,min=50,max=1000"`
	Reason      string `json:"reason" validate:"required,min=20,max=500"`
}

// BookRecommendations is the full agent response. Order follows the model
// output and carries no meaning.
type BookRecommendations struct {
	Recommendations []BookRecommendation `json:"recommendations" validate:"required,min=3,max=5,dive"`
}

// MediaQuery is the book a user selected for cross-domain recommendations.
type MediaQuery struct {
	Title       string `json:"title" validate:"required,notblank"`
	Author      string `json:"author" validate:"required,notblank"`
	Genre       string `json:"genre" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
}

// MovieRecommendation is a thematically related movie.
type MovieRecommendation struct {
	Title       string `json:"title" validate:"required,notblank"`
	Year        string `json:"year" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
	Reason      string `json:"reason" validate:"required,notblank"`
}

// GameRecommendation is a thematically related video game.
type GameRecommendation struct {
	Title       string `json:"title" validate:"required,notblank"`
	Platform    string `json:"platform" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
	Reason      string `json:"reason" validate:"required,notblank"`
}

// SongRecommendation is a thematically related song.
type SongRecommendation struct {
	Title       string `json:"title" validate:"required,notblank"`
	Artist      string `json:"artist" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
	Reason      string `json:"reason" validate:"required,notblank"`
}

// MediaRecommendations holds exactly one recommendation of each media kind.
type MediaRecommendations struct {
	Movie MovieRecommendation `json:"movie"`
	Game  GameRecommendation  `json:"game"`
	Song  SongRecommendation  `json:"song"`
}
