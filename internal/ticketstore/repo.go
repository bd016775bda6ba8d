package ticketstore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
)

// Repository persists tickets and their append-only message log.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *Repository) FindByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("ticket_number = ?", number).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListMessages returns the log in id order.
func (r *Repository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	var rows []models.TicketMessage
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) InsertMessage(ctx context.Context, msg *models.TicketMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// UpdateStatus moves the ticket only while it is in one of the from statuses.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.TicketStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// OrderParties returns the buyer and seller of the order a ticket belongs to.
func (r *Repository) OrderParties(ctx context.Context, orderID uuid.UUID) (buyerID, sellerID uuid.UUID, err error) {
	var order models.Order
	err = r.db.WithContext(ctx).
		Select("buyer_id", "seller_id").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return order.BuyerID, order.SellerID, nil
}
