package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// eventFilterToBSON is the single translation point from the typed filter to
// a MongoDB query document.
func eventFilterToBSON(f models.EventFilter) bson.M {
	filter := bson.M{}
	var and []bson.M

	switch len(f.EventTypes) {
	case 0:
	case 1:
		filter["eventType"] = f.EventTypes[0]
	default:
		filter["eventType"] = bson.M{"$in": f.EventTypes}
	}

	if f.EventTypePattern != "" {
		pattern := bson.M{"eventType": bson.M{"$regex": f.EventTypePattern, "$options": "i"}}
		if _, ok := filter["eventType"]; ok {
			and = append(and, pattern)
		} else {
			filter["eventType"] = pattern["eventType"]
		}
	}

	if f.EntityType != "" {
		filter["entityType"] = f.EntityType
	}
	switch {
	case f.EntityID != "":
		filter["entityId"] = f.EntityID
	case f.ExactEntity:
		filter["entityId"] = bson.M{"$exists": false}
	}

	if f.Actor != "" {
		and = append(and, actorFilter(f.Actor))
	}

	if !f.Since.IsZero() || !f.Until.IsZero() {
		createdAt := bson.M{}
		if !f.Since.IsZero() {
			createdAt["$gte"] = f.Since
		}
		if !f.Until.IsZero() {
			createdAt["$lt"] = f.Until
		}
		filter["createdAt"] = createdAt
	}

	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

// actorFilter mirrors AnalyticsEvent.Actor: session id first, then ip for
// sessionless events, then the shared unknown bucket.
func actorFilter(actor string) bson.M {
	if actor == models.UnknownActor {
		return bson.M{
			"sessionId": bson.M{"$exists": false},
			"ip":        bson.M{"$exists": false},
		}
	}
	return bson.M{"$or": bson.A{
		bson.M{"sessionId": actor},
		bson.M{"sessionId": bson.M{"$exists": false}, "ip": actor},
	}}
}

// actorExpression evaluates the actor fingerprint inside a pipeline stage.
func actorExpression() bson.M {
	return bson.M{"$ifNull": bson.A{
		"$sessionId",
		bson.M{"$ifNull": bson.A{"$ip", models.UnknownActor}},
	}}
}

// entityKeyFilter resolves a catalog entity by ObjectID when the key parses as
// one, and by slug otherwise.
func entityKeyFilter(key string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"slug": key}
}
