// Package semantic owns all Qdrant operations for the document index.
package semantic

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Payload field names. chat_id carries a keyword index so filtered search and
// delete stay cheap as the collection grows.
const (
	fieldText   = "text"
	fieldChatID = "chat_id"
)

// VectorStore is the sole owner of all Qdrant operations. It carries no retry
// logic of its own; callers decide which operations are worth retrying.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection with cosine distance if it doesn't
// exist. Idempotent, safe to call on every ingestion run.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// EnsurePayloadIndex creates a keyword payload index on chat_id. Qdrant
// treats repeated creation as a no-op, so this too runs every ingestion.
func (v *VectorStore) EnsurePayloadIndex(ctx context.Context) error {
	fieldType := pb.FieldType_FieldTypeKeyword
	wait := true
	_, err := v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: v.collection,
		FieldName:      fieldChatID,
		FieldType:      &fieldType,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("semantic: create payload index on %s: %w", fieldChatID, err)
	}
	return nil
}

// Upsert stores chunk records. Called by engine/ingest under its retry budget.
func (v *VectorStore) Upsert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = recordPoint(r)
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// SearchByChat performs k-NN similarity search restricted to one chat.
func (v *VectorStore) SearchByChat(ctx context.Context, embedding []float32, chatID string, topK int) ([]Hit, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		Filter:         chatFilter(chatID),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search chat %s: %w", chatID, err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = hitFromScored(r)
	}
	return hits, nil
}

// DeleteByChat removes every point belonging to a chat. Used both for chat
// deletion and as the compensating action when a blob upload fails.
func (v *VectorStore) DeleteByChat(ctx context.Context, chatID string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: chatFilter(chatID)},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete by chat %s: %w", chatID, err)
	}
	return nil
}

func chatFilter(chatID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: fieldChatID,
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: chatID},
						},
					},
				},
			},
		},
	}
}

func recordPoint(r ChunkRecord) *pb.PointStruct {
	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: r.Embedding},
			},
		},
		Payload: map[string]*pb.Value{
			fieldText:   {Kind: &pb.Value_StringValue{StringValue: r.Text}},
			fieldChatID: {Kind: &pb.Value_StringValue{StringValue: r.ChatID}},
		},
	}
}

func hitFromScored(r *pb.ScoredPoint) Hit {
	h := Hit{
		ID:    r.GetId().GetUuid(),
		Score: r.GetScore(),
	}
	for k, val := range r.GetPayload() {
		switch k {
		case fieldText:
			h.Text = val.GetStringValue()
		case fieldChatID:
			h.ChatID = val.GetStringValue()
		}
	}
	return h
}
