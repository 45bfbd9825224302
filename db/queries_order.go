package db

import (
	"context"

	"github.com/google/uuid"
)

func (queries *Queries) CreateOrder(ctx context.Context, order *Order) error {
	return translate(queries.DB.WithContext(ctx).Create(order).Error)
}

func (queries *Queries) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string, forUpdate bool) (*Order, error) {
	var order Order
	if err := queries.query(ctx, forUpdate).First(&order, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (queries *Queries) SaveOrder(ctx context.Context, order *Order) error {
	return translate(queries.DB.WithContext(ctx).Save(order).Error)
}

func (queries *Queries) CreateRefund(ctx context.Context, refund *Refund) error {
	return translate(queries.DB.WithContext(ctx).Create(refund).Error)
}

func (queries *Queries) GetRefund(ctx context.Context, id uuid.UUID, forUpdate bool) (*Refund, error) {
	var refund Refund
	if err := queries.query(ctx, forUpdate).First(&refund, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &refund, nil
}

func (queries *Queries) SaveRefund(ctx context.Context, refund *Refund) error {
	return translate(queries.DB.WithContext(ctx).Save(refund).Error)
}

func (queries *Queries) GetAssignment(ctx context.Context, contentType ContentType, contentID, granteeID uuid.UUID) (*SharingAssignment, error) {
	var assignment SharingAssignment
	err := queries.DB.WithContext(ctx).
		First(&assignment, "content_type = ? AND content_id = ? AND grantee_id = ?", contentType, contentID, granteeID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &assignment, nil
}

func (queries *Queries) GetAssignmentByID(ctx context.Context, id uuid.UUID) (*SharingAssignment, error) {
	var assignment SharingAssignment
	if err := queries.DB.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &assignment, nil
}

// Insert or update. Uniqueness of (content type, content ID, grantee) is enforced by idx_sharing_grant
func (queries *Queries) SaveAssignment(ctx context.Context, assignment *SharingAssignment) error {
	return translate(queries.DB.WithContext(ctx).Save(assignment).Error)
}
