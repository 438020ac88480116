// Package document implements the MongoDB storage adapter. Each entity
// maps to one collection; declared fields are stored as first-class
// document fields so the server can enforce a schema validator derived
// from the entity declaration.
package document

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/noko0413/Railnode/pkg/types"
)

// Adapter owns the lazily connected client and the per-entity collection
// bindings.
type Adapter struct {
	url        string
	database   string
	prefix     string
	log        *zap.SugaredLogger
	mu         sync.Mutex
	client     *mongo.Client
	db         *mongo.Database
	stores     map[string]*Store
	bootstraps map[string]*bootstrap
	disposed   bool
}

// bootstrap memoizes one in-flight or completed collection provisioning,
// with the same await/evict-on-failure discipline as the relational
// adapter's table bootstrap.
type bootstrap struct {
	done chan struct{}
	err  error
}

// NewAdapter validates the document settings and creates the adapter. No
// connection is made until first use.
func NewAdapter(cfg types.DocumentConfig, log *zap.SugaredLogger) (*Adapter, error) {
	url, err := cfg.ResolveURL()
	if err != nil {
		return nil, err
	}
	database, err := cfg.ResolveDatabase()
	if err != nil {
		return nil, err
	}
	return &Adapter{
		url:        url,
		database:   database,
		prefix:     cfg.Prefix,
		log:        log,
		stores:     make(map[string]*Store),
		bootstraps: make(map[string]*bootstrap),
	}, nil
}

// Init connects eagerly and verifies the backend is reachable.
func (a *Adapter) Init(ctx context.Context) error {
	if _, err := a.ensureClient(ctx); err != nil {
		return types.NewStoreError(types.AdapterDocument, "", "init", err)
	}
	return nil
}

// ensureClient lazily connects the shared client. A client whose connect or
// ping fails is discarded, not cached, so the next call retries from
// scratch.
func (a *Adapter) ensureClient(ctx context.Context) (*mongo.Database, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, types.ErrAdapterDisposed
	}
	if a.db != nil {
		return a.db, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.url))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	a.client = client
	a.db = client.Database(a.database)
	return a.db, nil
}

// GetCrudStore returns the memoized store for the entity. The collection
// name is derived like a table name, with the optional configured prefix,
// and validated before use.
func (a *Adapter) GetCrudStore(schema types.EntitySchema) (types.CrudStore, error) {
	name, err := types.StorageName(schema.Name)
	if err != nil {
		return nil, err
	}
	coll := a.prefix + name
	if err := types.ValidateIdentifier(coll); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, types.ErrAdapterDisposed
	}
	if s, ok := a.stores[schema.Name]; ok {
		return s, nil
	}
	s := &Store{adapter: a, schema: schema, coll: coll}
	a.stores[schema.Name] = s
	return s, nil
}

// ensureCollection provisions the entity collection at most once per
// adapter lifetime. Concurrent first-uses await the same attempt; failures
// evict the memo for a retry on the next call.
func (a *Adapter) ensureCollection(ctx context.Context, db *mongo.Database, schema types.EntitySchema, coll string) error {
	a.mu.Lock()
	if b, ok := a.bootstraps[coll]; ok {
		a.mu.Unlock()
		select {
		case <-b.done:
			return b.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b := &bootstrap{done: make(chan struct{})}
	a.bootstraps[coll] = b
	a.mu.Unlock()

	err := a.provisionCollection(ctx, db, schema, coll)

	a.mu.Lock()
	b.err = err
	if err != nil {
		delete(a.bootstraps, coll)
	}
	a.mu.Unlock()
	close(b.done)

	return err
}

// provisionCollection creates the collection with a schema validator when
// it does not exist, falling back to an unvalidated collection when the
// server refuses. It then best-effort re-syncs the validator, since server
// validators are sticky across restarts and schema changes. Validator
// failures are swallowed by design; the collection stays functional.
func (a *Adapter) provisionCollection(ctx context.Context, db *mongo.Database, schema types.EntitySchema, coll string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": coll})
	if err != nil {
		return err
	}

	validator := schemaValidator(schema)
	if len(names) == 0 {
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, coll, opts); err != nil {
			a.log.Debugw("validated collection create failed, retrying without validator",
				"collection", coll, "error", err)
			if err := db.CreateCollection(ctx, coll); err != nil && !isNamespaceExists(err) {
				return err
			}
		}
	}

	cmd := bson.D{{Key: "collMod", Value: coll}, {Key: "validator", Value: validator}}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		a.log.Debugw("validator sync failed", "collection", coll, "error", err)
	}
	return nil
}

// isNamespaceExists reports whether err is the server's "collection already
// exists" error, which can happen when another process won the create race.
func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 48 || cmdErr.Name == "NamespaceExists"
	}
	return strings.Contains(err.Error(), "already exists")
}

// schemaValidator derives the $jsonSchema validator from the entity
// declaration: identity and timestamps are always required, plus every
// non-optional declared field.
func schemaValidator(schema types.EntitySchema) bson.M {
	required := []string{"_id", "createdAt", "updatedAt"}
	properties := bson.M{
		"_id":       bson.M{"bsonType": "objectId"},
		"createdAt": bson.M{"bsonType": "date"},
		"updatedAt": bson.M{"bsonType": "date"},
	}
	for _, f := range schema.Fields {
		if !f.Optional {
			required = append(required, f.Name)
		}
		properties[f.Name] = bson.M{"bsonType": bsonType(f.Type)}
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": properties,
	}}
}

// bsonType maps a declared field type onto the validator's bsonType value.
func bsonType(ft types.FieldType) any {
	switch ft {
	case types.FieldNumber:
		return bson.A{"double", "int", "long", "decimal"}
	case types.FieldBoolean:
		return "bool"
	default:
		return "string"
	}
}

// Dispose disconnects the client. Idempotent.
func (a *Adapter) Dispose(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil
	}
	a.disposed = true
	a.stores = make(map[string]*Store)
	a.bootstraps = make(map[string]*bootstrap)
	if a.client != nil {
		client := a.client
		a.client = nil
		a.db = nil
		if err := client.Disconnect(ctx); err != nil {
			return types.NewStoreError(types.AdapterDocument, "", "dispose", err)
		}
	}
	return nil
}
