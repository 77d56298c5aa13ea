package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ideaforge/entity"
	"ideaforge/internal/codestore"
	"ideaforge/internal/config"
	"ideaforge/lib/clock"
	"ideaforge/lib/sl"
)

const collectionCodes = "codes"

var _ codestore.Store = (*MongoDB)(nil)

// MongoDB implements the code store on a document collection, one document
// per code. FindOneAndUpdate gives storage-native compare-and-swap, so
// allocation and session saves do not need a process-wide lock.
type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
	log           *slog.Logger
}

func NewMongoClient(conf *config.Config, log *slog.Logger) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
		log:           log.With(sl.Module("codestore.mongo")),
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

// codeDoc mirrors entity.CodeRecord with bson-friendly payload fields; the
// opaque JSON blobs are stored as native documents so they stay queryable.
type codeDoc struct {
	Code        string        `bson:"code"`
	Used        bool          `bson:"used"`
	ProjectId   *string       `bson:"projectId"`
	ProjectName *string       `bson:"projectName"`
	ProjectData interface{}   `bson:"projectData"`
	ChatHistory []interface{} `bson:"chatHistory"`
	CurrentStep int           `bson:"currentStep"`
	CreatedAt   *string       `bson:"createdAt"`
	ActivatedAt *string       `bson:"activatedAt"`
}

func (d *codeDoc) record() (*entity.CodeRecord, error) {
	rec := &entity.CodeRecord{
		Used:        d.Used,
		ProjectId:   d.ProjectId,
		ProjectName: d.ProjectName,
		CurrentStep: d.CurrentStep,
		CreatedAt:   d.CreatedAt,
		ActivatedAt: d.ActivatedAt,
		ChatHistory: []json.RawMessage{},
	}
	if d.ProjectData != nil {
		data, err := json.Marshal(d.ProjectData)
		if err != nil {
			return nil, fmt.Errorf("project data: %w", err)
		}
		rec.ProjectData = data
	}
	for _, msg := range d.ChatHistory {
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("chat message: %w", err)
		}
		rec.ChatHistory = append(rec.ChatHistory, data)
	}
	return rec, nil
}

func (m *MongoDB) Allocate(ctx context.Context) (string, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return "", err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "used", Value: false}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "createdAt", Value: clock.Now()}}}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "code", Value: 1}}).
		SetReturnDocument(options.After)

	var doc codeDoc
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", codestore.ErrNoneAvailable
		}
		return "", fmt.Errorf("mongodb allocate: %w", err)
	}
	m.log.With(
		slog.String("code", doc.Code),
	).Info("code reserved for a new payment")
	return doc.Code, nil
}

func (m *MongoDB) SaveSession(ctx context.Context, state *entity.SessionState) (*entity.CodeRecord, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	state.Code = entity.NormalizeCode(state.Code)
	rec := &entity.CodeRecord{}
	rec.ApplySession(state, clock.Now())

	var projectData interface{}
	if len(state.ProjectData) > 0 {
		if err = json.Unmarshal(state.ProjectData, &projectData); err != nil {
			return nil, fmt.Errorf("project data: %w", err)
		}
	}
	chatHistory := make([]interface{}, 0, len(state.ChatHistory))
	for _, msg := range state.ChatHistory {
		var entry interface{}
		if err = json.Unmarshal(msg, &entry); err != nil {
			return nil, fmt.Errorf("chat message: %w", err)
		}
		chatHistory = append(chatHistory, entry)
	}

	// pipeline update so activatedAt/createdAt are written once and kept
	now := clock.Now()
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "used", Value: true},
			{Key: "projectId", Value: rec.ProjectId},
			{Key: "projectName", Value: rec.ProjectName},
			{Key: "projectData", Value: projectData},
			{Key: "chatHistory", Value: chatHistory},
			{Key: "currentStep", Value: state.CurrentStep},
			{Key: "activatedAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$activatedAt", now}}}},
			{Key: "createdAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$createdAt", now}}}},
		}}},
	}

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "code", Value: state.Code}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc codeDoc
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, codestore.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb save session: %w", err)
	}
	m.log.With(
		slog.String("code", doc.Code),
		slog.Int("step", doc.CurrentStep),
	).Info("session saved")
	return doc.record()
}

func (m *MongoDB) Resolve(ctx context.Context, code string) (*entity.CodeRecord, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "code", Value: entity.NormalizeCode(code)}}

	var doc codeDoc
	err = collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, codestore.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return doc.record()
}
