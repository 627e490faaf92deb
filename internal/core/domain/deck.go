package domain

// Deck groups cards owned by a single user.
type Deck struct {
	Document    `bson:",inline"`
	OwnerID     string `json:"owner_id" bson:"owner_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description"`
}

// Card is a single flashcard. DeckID is the only link to its deck, so moving
// a card is one document write.
type Card struct {
	Document `bson:",inline"`
	DeckID   string `json:"deck_id" bson:"deck_id"`
	OwnerID  string `json:"owner_id" bson:"owner_id"`
	Front    string `json:"front" bson:"front"`
	Back     string `json:"back" bson:"back"`
}
