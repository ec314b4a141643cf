package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"prism-connector/domain/model"
)

const (
	fanDatabase   = "prism_connector"
	fanCollection = "fan_records"
)

// FanRepository keeps per-fan interaction history in MongoDB.
type FanRepository struct {
	client *mongo.Client
}

func NewFanRepository(client *mongo.Client) *FanRepository {
	return &FanRepository{client: client}
}

func (r *FanRepository) collection() *mongo.Collection {
	return r.client.Database(fanDatabase).Collection(fanCollection)
}

func (r *FanRepository) RecordInteraction(ctx context.Context, personaID, fanID, username, commentText string) (*model.FanRecord, error) {
	now := time.Now().UTC()
	filter := bson.D{{Key: "persona_id", Value: personaID}, {Key: "fan_id", Value: fanID}}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "interaction_count", Value: 1}}},
		{Key: "$set", Value: bson.D{
			{Key: "username", Value: username},
			{Key: "last_interaction", Value: now},
			{Key: "notes", Value: commentText},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "persona_id", Value: personaID},
			{Key: "fan_id", Value: fanID},
			{Key: "first_seen", Value: now},
		}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	rec := &model.FanRecord{}
	if err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Context summarizes the fan's history for reply drafting. Unknown fans get
// an empty string, not an error.
func (r *FanRepository) Context(ctx context.Context, personaID, fanID string) (string, error) {
	filter := bson.D{{Key: "persona_id", Value: personaID}, {Key: "fan_id", Value: fanID}}
	rec := &model.FanRecord{}
	if err := r.collection().FindOne(ctx, filter).Decode(rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", err
	}
	return fanSummary(rec), nil
}

func fanSummary(rec *model.FanRecord) string {
	if rec.InteractionCount <= 1 {
		return ""
	}
	return fmt.Sprintf("%s has commented %d times since %s. Last comment: %s",
		rec.Username, rec.InteractionCount, rec.FirstSeen.Format("2006-01-02"), rec.Notes)
}
