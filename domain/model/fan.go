package model

import "time"

// FanRecord accumulates interaction history for one fan of one persona.
// The interaction engine records comments here and consumes the summary when
// drafting replies.
type FanRecord struct {
	PersonaID        string    `json:"persona_id" bson:"persona_id"`
	FanID            string    `json:"fan_id" bson:"fan_id"`
	Username         string    `json:"username" bson:"username"`
	InteractionCount int       `json:"interaction_count" bson:"interaction_count"`
	Notes            string    `json:"notes" bson:"notes"`
	FirstSeen        time.Time `json:"first_seen" bson:"first_seen"`
	LastInteraction  time.Time `json:"last_interaction" bson:"last_interaction"`
}
