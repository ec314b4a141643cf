package persistence

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDb creates a client for the fan-memory store. Callers treat a nil
// client as "continue without fan memory".
func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	var uri string
	if user != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin", user, password, host, port, name)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%s/%s", host, port, name)
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, nil
}
