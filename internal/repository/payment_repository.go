package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/shop-management/internal/model"
)

// PaymentCollection is the MongoDB collection holding payment records.
const PaymentCollection = "payments"

// PaymentRepo is the payment ledger.  Each purchase attempt becomes one
// document; nothing here ever marks a payment complete.
type PaymentRepo struct {
	coll *mongo.Collection
}

// NewPaymentRepo constructs a PaymentRepo on db's payments collection.
func NewPaymentRepo(db *mongo.Database) *PaymentRepo {
	return &PaymentRepo{coll: db.Collection(PaymentCollection)}
}

// EnsureIndexes creates the lookup index used by ListByShop.
func (r *PaymentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

// Insert stores p and fills its ID.
func (r *PaymentRepo) Insert(ctx context.Context, p *model.Payment) error {
	p.ID = ""
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id %v", res.InsertedID)
	}
	p.ID = oid.Hex()
	return nil
}

// ListByShop returns a shop's payments, newest first.  An empty shopID
// lists every shop's payments.
func (r *PaymentRepo) ListByShop(ctx context.Context, shopID string) ([]*model.Payment, error) {
	filter := bson.M{}
	if shopID != "" {
		filter["shop_id"] = shopID
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*model.Payment, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
