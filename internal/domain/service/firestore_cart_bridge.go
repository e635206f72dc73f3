package service

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
)

// NegotiatedSource marks cart lines created from an agreed deal.
const NegotiatedSource = "negotiation"

// FirestoreCartBridge writes cart lines to carts/{buyerId}/items/{conversationId}.
type FirestoreCartBridge struct {
	client *firestore.Client
}

func NewFirestoreCartBridge(client *firestore.Client) *FirestoreCartBridge {
	return &FirestoreCartBridge{client: client}
}

func (b *FirestoreCartBridge) AddItem(ctx context.Context, req AddItemRequest) (*entity.CartItem, error) {
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	itemRef := b.client.Collection("carts").Doc(req.BuyerID).Collection("items").Doc(req.ConversationID)
	productRef := b.client.Collection("products").Doc(req.ProductID)

	var item *entity.CartItem
	err := b.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Get(itemRef)
		if err == nil {
			var current entity.CartItem
			if err := existing.DataTo(&current); err != nil {
				return err
			}
			item = &current
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		productSnap, err := tx.Get(productRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.ProductUnavailable(req.ProductID)
			}
			return err
		}
		var product entity.Product
		if err := productSnap.DataTo(&product); err != nil {
			return err
		}
		if !product.Available {
			return errors.ProductUnavailable(req.ProductID)
		}

		item = &entity.CartItem{
			ID:             req.ConversationID,
			BuyerID:        req.BuyerID,
			ProductID:      req.ProductID,
			ConversationID: req.ConversationID,
			UnitPrice:      req.UnitPrice,
			Quantity:       req.Quantity,
			Source:         NegotiatedSource,
			CreatedAt:      time.Now().UTC(),
		}
		return tx.Create(itemRef, item)
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		logger.Error("Cart write failed for buyer %s conversation %s: %v", req.BuyerID, req.ConversationID, err)
		return nil, errors.Internal("Failed to write cart item", err)
	}

	return item, nil
}
