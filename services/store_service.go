package services

import (
	"context"
	"fmt"
	"log"
	"time"

	cfgpkg "relay/config"
	"relay/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ConversationStore is the DynamoDB-backed history store. One document per
// user in the users table; direct-chat messages live as items under a
// uid#chatId partition in the chat messages table.
type ConversationStore struct {
	db                *dynamodb.Client
	usersTable        string
	chatsTable        string
	chatMessagesTable string
}

// NewConversationStore builds the DynamoDB client from config. A custom
// endpoint (DynamoDB Local) gets static dummy credentials.
func NewConversationStore(cfg cfgpkg.Config) (*ConversationStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.DynamoRegion),
	}
	if cfg.DynamoEndpoint != "" {
		endpoint := cfg.DynamoEndpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts,
			awsconfig.WithEndpointResolverWithOptions(resolver),
			awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
				},
			}),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return NewConversationStoreWithClient(dynamodb.NewFromConfig(awsCfg), cfg), nil
}

// NewConversationStoreWithClient wires an existing DynamoDB client.
func NewConversationStoreWithClient(db *dynamodb.Client, cfg cfgpkg.Config) *ConversationStore {
	return &ConversationStore{
		db:                db,
		usersTable:        cfg.UsersTable,
		chatsTable:        cfg.ChatsTable,
		chatMessagesTable: cfg.ChatMessagesTable,
	}
}

// EnsureTables creates the tables if missing. Best effort: an
// already-exists error is logged and ignored.
func (s *ConversationStore) EnsureTables(ctx context.Context) {
	creates := []*dynamodb.CreateTableInput{
		{
			TableName: aws.String(s.usersTable),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("UserID"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("UserID"), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(s.chatsTable),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("ChatKey"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("ChatKey"), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(s.chatMessagesTable),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("ChatKey"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("Timestamp"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("ChatKey"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("Timestamp"), KeyType: types.KeyTypeRange},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
	}
	for _, in := range creates {
		if _, err := s.db.CreateTable(ctx, in); err != nil {
			log.Printf("table %s might already exist: %v", *in.TableName, err)
		}
	}
}

// GetConversation reads the per-user document. A missing item is not an
// error: it returns a record with empty defaults.
func (s *ConversationStore) GetConversation(ctx context.Context, userID string) (models.Conversation, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.usersTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to read conversation for %s: %w", userID, err)
	}
	if out.Item == nil {
		return models.Conversation{UserID: userID}, nil
	}
	return conversationFromItem(userID, out.Item), nil
}

// AppendUserTurn performs the single merge-write for an inbound event:
// lastMessageAt/lastText are overwritten and the turn is appended to the
// history list atomically, so concurrent events for one user cannot lose
// an append.
func (s *ConversationStore) AppendUserTurn(ctx context.Context, userID string, turn models.Turn, lastText string) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.usersTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String(
			"SET LastMessageAt = :at, LastText = :lt, History = list_append(if_not_exists(History, :empty), :turn)",
		),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at":    &types.AttributeValueMemberS{Value: turn.At},
			":lt":    &types.AttributeValueMemberS{Value: lastText},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":turn":  &types.AttributeValueMemberL{Value: []types.AttributeValue{turnToAttributeValue(turn)}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to append user turn for %s: %w", userID, err)
	}
	return nil
}

// AppendModelTurn appends the generated reply to the history list.
func (s *ConversationStore) AppendModelTurn(ctx context.Context, userID string, turn models.Turn) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.usersTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String(
			"SET History = list_append(if_not_exists(History, :empty), :turn)",
		),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":turn":  &types.AttributeValueMemberL{Value: []types.AttributeValue{turnToAttributeValue(turn)}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to append model turn for %s: %w", userID, err)
	}
	return nil
}

// SaveChatMessage stores one direct-chat message under uid#chatId and
// touches the parent chat document's UpdatedAt.
func (s *ConversationStore) SaveChatMessage(ctx context.Context, uid, chatID string, msg models.Turn) error {
	key := chatKey(uid, chatID)

	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.chatsTable),
		Key: map[string]types.AttributeValue{
			"ChatKey": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String("SET UpdatedAt = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": &types.AttributeValueMemberS{Value: msg.At},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to touch chat %s: %w", key, err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.chatMessagesTable),
		Item: map[string]types.AttributeValue{
			"ChatKey":   &types.AttributeValueMemberS{Value: key},
			"Timestamp": &types.AttributeValueMemberS{Value: msg.At},
			"ID":        &types.AttributeValueMemberS{Value: uuid.New().String()},
			"Role":      &types.AttributeValueMemberS{Value: msg.Role},
			"Content":   &types.AttributeValueMemberS{Value: msg.Content},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save chat message for %s: %w", key, err)
	}
	return nil
}

// ActiveUsersSince scans the users table for records touched after the
// cutoff. Used by the digest job to pick which users to summarize.
func (s *ConversationStore) ActiveUsersSince(ctx context.Context, since time.Time) ([]string, error) {
	out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.usersTable),
		FilterExpression: aws.String("LastMessageAt >= :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberS{Value: since.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan active users: %w", err)
	}

	users := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if id, ok := item["UserID"].(*types.AttributeValueMemberS); ok {
			users = append(users, id.Value)
		}
	}
	return users, nil
}

// TurnsSince returns a user's history entries at or after the cutoff, in
// stored order.
func (s *ConversationStore) TurnsSince(ctx context.Context, userID string, since time.Time) ([]models.Turn, error) {
	record, err := s.GetConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	cutoff := since.Format(time.RFC3339)
	turns := make([]models.Turn, 0, len(record.History))
	for _, turn := range record.History {
		if turn.At >= cutoff {
			turns = append(turns, turn)
		}
	}
	return turns, nil
}

func chatKey(uid, chatID string) string {
	return uid + "#" + chatID
}

func turnToAttributeValue(turn models.Turn) types.AttributeValue {
	return &types.AttributeValueMemberM{
		Value: map[string]types.AttributeValue{
			"At":      &types.AttributeValueMemberS{Value: turn.At},
			"Role":    &types.AttributeValueMemberS{Value: turn.Role},
			"Content": &types.AttributeValueMemberS{Value: turn.Content},
		},
	}
}

func conversationFromItem(userID string, item map[string]types.AttributeValue) models.Conversation {
	record := models.Conversation{UserID: userID}
	if v, ok := item["LastMessageAt"].(*types.AttributeValueMemberS); ok {
		record.LastMessageAt = v.Value
	}
	if v, ok := item["LastText"].(*types.AttributeValueMemberS); ok {
		record.LastText = v.Value
	}
	list, ok := item["History"].(*types.AttributeValueMemberL)
	if !ok {
		return record
	}
	for _, entry := range list.Value {
		m, ok := entry.(*types.AttributeValueMemberM)
		if !ok {
			continue
		}
		turn := models.Turn{}
		if v, ok := m.Value["At"].(*types.AttributeValueMemberS); ok {
			turn.At = v.Value
		}
		if v, ok := m.Value["Role"].(*types.AttributeValueMemberS); ok {
			turn.Role = v.Value
		}
		if v, ok := m.Value["Content"].(*types.AttributeValueMemberS); ok {
			turn.Content = v.Value
		}
		record.History = append(record.History, turn)
	}
	return record
}
