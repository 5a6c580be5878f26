package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type conversationDoc struct {
	ID             string           `bson:"_id"`
	ListingID      string           `bson:"listing_id"`
	ParticipantKey string           `bson:"participant_key"`
	ParticipantIDs []string         `bson:"participant_ids"`
	LastMessage    string           `bson:"last_message"`
	LastMessageAt  time.Time        `bson:"last_message_at"`
	UnreadCounts   map[string]int64 `bson:"unread_counts"`
	CreatedAt      time.Time        `bson:"created_at"`
}

func (d *conversationDoc) toDomain(viewerID string) *domain.Conversation {
	return &domain.Conversation{
		ID:             d.ID,
		ListingID:      d.ListingID,
		ParticipantIDs: d.ParticipantIDs,
		LastMessage:    d.LastMessage,
		LastMessageAt:  d.LastMessageAt,
		UnreadCount:    d.UnreadCounts[counterKey(viewerID)],
		CreatedAt:      d.CreatedAt,
	}
}

type mongoRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("conversation_messages"),
	}
}

func (m *mongoRepository) FindOrCreate(ctx context.Context, listingID string, participants []string, at time.Time) (*domain.Conversation, error) {
	sorted := append([]string{}, participants...)
	sort.Strings(sorted)
	key := strings.Join(sorted, "|")

	filter := bson.M{"listing_id": listingID, "participant_key": key}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":             uuid.NewString(),
			"participant_ids": sorted,
			"last_message":    "",
			"last_message_at": at,
			"unread_counts":   bson.M{},
			"created_at":      at,
		},
	}
	_, err := m.conversations.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	var doc conversationDoc
	if err := m.conversations.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return doc.toDomain(sorted[0]), nil
}

func (m *mongoRepository) ListForParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := m.conversations.Find(ctx, bson.M{"participant_ids": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*domain.Conversation{}
	for cursor.Next(ctx) {
		var doc conversationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %w", err)
		}
		out = append(out, doc.toDomain(userID))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}

func (m *mongoRepository) load(ctx context.Context, conversationID, userID string) (*conversationDoc, error) {
	var doc conversationDoc
	err := m.conversations.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if !isParticipant(doc.ParticipantIDs, userID) {
		return nil, ErrNotParticipant
	}
	return &doc, nil
}

func (m *mongoRepository) AppendMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	doc, err := m.load(ctx, msg.ConversationID, msg.SenderID)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, err := m.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"last_message":    msg.Text,
			"last_message_at": msg.CreatedAt,
		},
	}
	inc := bson.M{}
	for _, p := range doc.ParticipantIDs {
		if p != msg.SenderID {
			inc["unread_counts."+counterKey(p)] = 1
		}
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	if _, err := m.conversations.UpdateOne(ctx, bson.M{"_id": doc.ID}, update); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

func (m *mongoRepository) Messages(ctx context.Context, conversationID, userID string) ([]domain.ConversationMessage, error) {
	if _, err := m.load(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	out := []domain.ConversationMessage{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return out, nil
}

func (m *mongoRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	filter := bson.M{"_id": conversationID, "participant_ids": userID}
	update := bson.M{"$set": bson.M{"unread_counts." + counterKey(userID): 0}}

	result, err := m.conversations.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (m *mongoRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"participant_ids": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$unread_counts." + counterKey(userID)},
		}}},
	}

	cursor, err := m.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate unread count: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode unread count: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "participant_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "last_message_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}

	_, err = m.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}

// counterKey makes a user id safe to use as a field name in unread_counts.
func counterKey(userID string) string {
	return strings.NewReplacer(".", "_", "$", "_").Replace(userID)
}
