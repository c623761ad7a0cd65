package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sells-group/leadintel/internal/model"
)

const (
	defaultMongoDatabase = "leadintel"
	leadsCollection      = "leads"
)

// MongoStore implements Store on a single MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	leads  *mongo.Collection
}

// NewMongo connects to uri and pings the primary.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, eris.Wrap(err, "mongo: connect")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, eris.Wrap(err, "mongo: ping")
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	return &MongoStore{client: client, leads: client.Database(database).Collection(leadsCollection)}, nil
}

func newMongoStoreForCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{leads: coll}
}

// Migrate ensures the listing indexes exist.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.leads.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "score", Value: -1}}},
	})
	return eris.Wrap(err, "mongo: create indexes")
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return eris.Wrap(s.client.Disconnect(ctx), "mongo: disconnect")
}

func (s *MongoStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if err := prepareLead(lead); err != nil {
		return err
	}
	_, err := s.leads.InsertOne(ctx, lead)
	return eris.Wrapf(err, "mongo: insert lead %s", lead.ID)
}

func (s *MongoStore) GetLead(ctx context.Context, id, ownerID string) (*model.Lead, error) {
	var lead model.Lead
	err := s.leads.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&lead)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "mongo: get lead %s", id)
	}
	lead.Profile.Normalize()
	return &lead, nil
}

func (s *MongoStore) ListLeads(ctx context.Context, filter model.LeadFilter) (*model.LeadPage, error) {
	filter.Normalize()
	query := mongoLeadFilter(filter)

	total, err := s.leads.CountDocuments(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "mongo: count leads")
	}

	opts := options.Find().
		SetSort(mongoLeadSort(filter.Sort)).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit)).
		SetProjection(bson.M{"scrape": 0})
	if filter.Sort == model.SortName {
		opts.SetCollation(&options.Collation{Locale: "en", Strength: 2})
	}

	cursor, err := s.leads.Find(ctx, query, opts)
	if err != nil {
		return nil, eris.Wrap(err, "mongo: list leads")
	}
	var leads []model.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, eris.Wrap(err, "mongo: decode leads")
	}
	for i := range leads {
		leads[i].Profile.Normalize()
	}
	return model.NewLeadPage(leads, int(total), filter), nil
}

func (s *MongoStore) DeleteLead(ctx context.Context, id, ownerID string) error {
	res, err := s.leads.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return eris.Wrapf(err, "mongo: delete lead %s", id)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Stats(ctx context.Context, ownerID string) (*model.LeadStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"avg":   bson.M{"$avg": "$score"},
			"high": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$gte": bson.A{"$score", model.HighScoreThreshold}}, 1, 0},
			}},
		}}},
	}
	cursor, err := s.leads.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, eris.Wrap(err, "mongo: lead stats")
	}
	var rows []struct {
		Total int64   `bson:"total"`
		Avg   float64 `bson:"avg"`
		High  int64   `bson:"high"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, eris.Wrap(err, "mongo: decode stats")
	}
	if len(rows) == 0 {
		return statsFromAggregates(0, 0, 0), nil
	}
	return statsFromAggregates(rows[0].Total, rows[0].Avg, rows[0].High), nil
}

func mongoLeadFilter(f model.LeadFilter) bson.M {
	query := bson.M{"owner_id": f.OwnerID}
	if s := strings.TrimSpace(f.Search); s != "" {
		query["profile.company_name"] = containsRegex(s)
	}
	if s := strings.TrimSpace(f.Industry); s != "" {
		query["profile.industry"] = containsRegex(s)
	}
	score := bson.M{}
	if f.MinScore != nil {
		score["$gte"] = *f.MinScore
	}
	if f.MaxScore != nil {
		score["$lte"] = *f.MaxScore
	}
	if len(score) > 0 {
		query["score"] = score
	}
	return query
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func mongoLeadSort(s model.LeadSort) bson.D {
	switch s {
	case model.SortScoreHigh:
		return bson.D{{Key: "score", Value: -1}, {Key: "created_at", Value: -1}}
	case model.SortScoreLow:
		return bson.D{{Key: "score", Value: 1}, {Key: "created_at", Value: -1}}
	case model.SortName:
		return bson.D{{Key: "profile.company_name", Value: 1}, {Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}
