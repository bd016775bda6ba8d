package orderstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/taskrent-backend/internal/ticketstore"
	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
)

// Repository defines persistence operations for orders and settlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	SetTicketNumber(ctx context.Context, id uuid.UUID, number string) error
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	FindSettlement(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
}

// TicketLinker opens and closes the dispute ticket inside the order transaction.
type TicketLinker interface {
	OpenForOrder(ctx context.Context, tx *gorm.DB, in ticketstore.OpenInput) (*models.Ticket, error)
	CloseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
}

var _ TicketLinker = (*ticketstore.Service)(nil)
