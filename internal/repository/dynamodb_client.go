package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"chat-responder/internal/domain"
)

const (
	skPrefixTurn       = "TURN#"
	feedPK             = "FEED#ALL"
	defaultTTLDuration = 30 * 24 * time.Hour

	// Fixed-width fraction so sort keys compare lexically in time order.
	skTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by HistoryClient.
// Defined here for testability.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// HistoryClient stores turns in a single DynamoDB table. Each turn is written
// twice in one transaction: under its session partition and under a shared
// feed partition that serves cross-session queries.
type HistoryClient struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a HistoryClient. A non-positive ttl uses 30 days.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*HistoryClient, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTLDuration
	}
	return &HistoryClient{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

// sessionPK returns the partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// turnSK orders turns by time; the random suffix keeps two turns written in
// the same instant distinct.
func turnSK(ts time.Time) string {
	return skPrefixTurn + ts.UTC().Format(skTimeLayout) + "#" + uuid.NewString()[:8]
}

// Append records one turn with a server-assigned timestamp.
func (c *HistoryClient) Append(ctx context.Context, sessionID, userText, botText string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: Append: session id is required")
	}
	now := c.now().UTC()
	sk := turnSK(now)
	ttl := now.Add(c.ttl).Unix()

	turn := domain.Turn{SessionID: sessionID, UserText: userText, BotText: botText, Timestamp: now}
	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(sessionPK(sessionID), sk, turn, ttl),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(feedPK, sk, turn, ttl),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// Query returns the most recent turns, newest first. An empty sessionID reads
// the shared feed.
func (c *HistoryClient) Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return []domain.Turn{}, nil
	}
	pk := feedPK
	if sessionID != "" {
		pk = sessionPK(sessionID)
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Query: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: Query unmarshal: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func turnItem(pk, sk string, turn domain.Turn, ttl int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: pk},
		"SK":        &types.AttributeValueMemberS{Value: sk},
		"sessionId": &types.AttributeValueMemberS{Value: turn.SessionID},
		"userText":  &types.AttributeValueMemberS{Value: turn.UserText},
		"botText":   &types.AttributeValueMemberS{Value: turn.BotText},
		"createdAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(turn.Timestamp.UnixNano(), 10)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}
}

// itemToTurn converts a DynamoDB attribute map to a Turn.
func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return domain.Turn{}, err
	}
	userText, err := strAttr(item, "userText")
	if err != nil {
		return domain.Turn{}, err
	}
	botText, err := strAttr(item, "botText")
	if err != nil {
		return domain.Turn{}, err
	}
	created, err := int64Attr(item, "createdAt")
	if err != nil {
		return domain.Turn{}, err
	}
	return domain.Turn{
		SessionID: sessionID,
		UserText:  userText,
		BotText:   botText,
		Timestamp: time.Unix(0, created).UTC(),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
