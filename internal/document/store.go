package document

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noko0413/Railnode/pkg/types"
)

// Store is the collection-backed CrudStore for one entity.
type Store struct {
	adapter *Adapter
	schema  types.EntitySchema
	coll    string
}

// ready returns the collection handle after connecting and provisioning.
func (s *Store) ready(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.adapter.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.adapter.ensureCollection(ctx, db, s.schema, s.coll); err != nil {
		return nil, err
	}
	return db.Collection(s.coll), nil
}

// GetAll returns every document ordered by native object id ascending.
func (s *Store) GetAll(ctx context.Context) ([]types.Record, error) {
	coll, err := s.ready(ctx)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "getAll", err)
	}

	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "getAll", err)
	}
	defer cur.Close(ctx)

	out := []types.Record{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "getAll", err)
		}
		out = append(out, docToRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "getAll", err)
	}
	return out, nil
}

// GetByID returns the document for id, or nil if absent. An id that does
// not parse as an object id is absent, not an error.
func (s *Store) GetByID(ctx context.Context, id string) (*types.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	coll, err := s.ready(ctx)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "getById", err)
	}

	var doc bson.M
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "getById", err)
	}
	rec := docToRecord(doc)
	return &rec, nil
}

// Create inserts a document with the sanitized fields spread beside the
// identity and timestamp fields. The returned record carries the id the
// insert actually assigned, mirroring exactly what the backend stored.
func (s *Store) Create(ctx context.Context, payload map[string]any) (types.Record, error) {
	coll, err := s.ready(ctx)
	if err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterDocument, s.schema.Name, "create", err)
	}

	// BSON dates carry millisecond precision; truncate so the returned
	// record equals a subsequent read.
	now := time.Now().UTC().Truncate(time.Millisecond)
	fields := types.StripReservedFields(payload)

	// The id is generated client-side; the insert stores exactly this value.
	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":       oid,
		"createdAt": now,
		"updatedAt": now,
	}
	for k, v := range fields {
		doc[k] = v
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return types.Record{}, types.NewStoreError(types.AdapterDocument, s.schema.Name, "create", err)
	}

	return types.Record{
		ID:        oid.Hex(),
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    fields,
	}, nil
}

// Update issues a single atomic find-and-update: non-null patch fields
// become $set entries, explicit nulls become $unset entries, and the new
// document is returned. Returns nil if no document matched.
func (s *Store) Update(ctx context.Context, id string, payload map[string]any) (*types.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	coll, err := s.ready(ctx)
	if err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "update", err)
	}

	patch := types.StripReservedFields(payload)
	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	unset := bson.M{}
	for k, v := range patch {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc bson.M
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewStoreError(types.AdapterDocument, s.schema.Name, "update", err)
	}
	rec := docToRecord(doc)
	return &rec, nil
}

// Delete removes the document and reports whether it existed. A malformed
// id deletes nothing.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	coll, err := s.ready(ctx)
	if err != nil {
		return false, types.NewStoreError(types.AdapterDocument, s.schema.Name, "delete", err)
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, types.NewStoreError(types.AdapterDocument, s.schema.Name, "delete", err)
	}
	return res.DeletedCount > 0, nil
}

// docToRecord converts a raw document into the uniform record shape: _id
// becomes the hex id, BSON dates become timestamps, everything else is a
// field value.
func docToRecord(doc bson.M) types.Record {
	rec := types.Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case "_id":
			if oid, ok := v.(primitive.ObjectID); ok {
				rec.ID = oid.Hex()
			}
		case "createdAt":
			rec.CreatedAt = asTime(v)
		case "updatedAt":
			rec.UpdatedAt = asTime(v)
		default:
			rec.Fields[k] = normalizeValue(v)
		}
	}
	return rec
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	}
	return time.Time{}
}

// normalizeValue maps driver-specific scalar types onto the plain Go types
// the other backends produce, so records compare equal across backends.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
