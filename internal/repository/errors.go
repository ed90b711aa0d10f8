package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate is returned when a unique index rejects an insert
var ErrDuplicate = errors.New("duplicate key")

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func newID() string {
	return primitive.NewObjectID().Hex()
}
