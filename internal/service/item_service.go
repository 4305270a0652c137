package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const searchLimit = 10

type ItemService interface {
	CreateItem(ctx context.Context, actor model.Actor, req *ItemRequest) (*model.Item, error)
	UpdateItem(ctx context.Context, actor model.Actor, id uuid.UUID, req *ItemUpdateRequest) (*model.Item, error)
	RetireItem(ctx context.Context, actor model.Actor, id uuid.UUID) error
	ListItems(ctx context.Context, includeRetired bool) ([]model.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
	SearchItems(ctx context.Context, query string) ([]model.Item, error)
}

type ItemRequest struct {
	Name         string          `json:"name" validate:"required,notblank,max=255"`
	CurrentPrice decimal.Decimal `json:"currentPrice" validate:"money"`
	Category     string          `json:"category" validate:"max=100"`
}

// ItemUpdateRequest only changes the fields that are present
type ItemUpdateRequest struct {
	Name         *string          `json:"name" validate:"omitempty,notblank,max=255"`
	CurrentPrice *decimal.Decimal `json:"currentPrice" validate:"omitempty,money"`
	Category     *string          `json:"category" validate:"omitempty,max=100"`
}

type itemService struct {
	items    repository.ItemRepository
	activity ActivityLogger
	events   EventPublisher
}

func NewItemService(items repository.ItemRepository, activity ActivityLogger, events EventPublisher) ItemService {
	return &itemService{
		items:    items,
		activity: activity,
		events:   events,
	}
}

func (s *itemService) CreateItem(ctx context.Context, actor model.Actor, req *ItemRequest) (*model.Item, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := policy.Check(actor.Role, policy.ItemCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	item := &model.Item{
		Name:          name,
		NameKey:       model.ItemNameKey(name),
		CurrentPrice:  req.CurrentPrice,
		Category:      strings.TrimSpace(req.Category),
		Status:        model.ItemActive,
		CreatedBy:     actor.ID(),
		LastUpdatedBy: actor.ID(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrItemExists
		}
		return nil, err
	}

	s.activity.Record(actor, model.ActionItemCreated, fmt.Sprintf("Created item %s at %s", item.Name, item.CurrentPrice.StringFixed(2)))
	s.publish(actor, "item_created", item, fmt.Sprintf("%s added item '%s'", actor.Label(), item.Name))
	return item, nil
}

func (s *itemService) UpdateItem(ctx context.Context, actor model.Actor, id uuid.UUID, req *ItemUpdateRequest) (*model.Item, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := policy.Check(actor.Role, policy.ItemUpdate); err != nil {
		return nil, err
	}
	if req.CurrentPrice != nil {
		if err := policy.Check(actor.Role, policy.ItemUpdatePrice); err != nil {
			return nil, err
		}
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"last_updated_by": actor.ID()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		fields["name"] = name
		fields["name_key"] = model.ItemNameKey(name)
	}
	if req.CurrentPrice != nil {
		fields["current_price"] = *req.CurrentPrice
	}
	if req.Category != nil {
		fields["category"] = strings.TrimSpace(*req.Category)
	}

	if err := s.items.Update(ctx, item.ID, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrItemExists
		}
		return nil, err
	}

	updated, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	s.activity.Record(actor, model.ActionItemUpdated, fmt.Sprintf("Updated item %s", updated.Name))
	s.publish(actor, "item_updated", updated, fmt.Sprintf("%s updated item '%s'", actor.Label(), updated.Name))
	return updated, nil
}

// RetireItem soft-deletes an item; sales that reference it stay valid.
func (s *itemService) RetireItem(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if err := policy.Check(actor.Role, policy.ItemRetire); err != nil {
		return err
	}
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if !item.IsActive() {
		return nil
	}

	if err := s.items.Update(ctx, id, map[string]interface{}{
		"status":          model.ItemRetired,
		"last_updated_by": actor.ID(),
	}); err != nil {
		return err
	}
	item.Status = model.ItemRetired

	s.activity.Record(actor, model.ActionItemRetired, fmt.Sprintf("Retired item %s", item.Name))
	s.publish(actor, "item_retired", item, fmt.Sprintf("%s retired item '%s'", actor.Label(), item.Name))
	return nil
}

func (s *itemService) ListItems(ctx context.Context, includeRetired bool) ([]model.Item, error) {
	return s.items.FindAll(ctx, includeRetired)
}

func (s *itemService) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

// SearchItems backs the price check and the sale form suggestions
func (s *itemService) SearchItems(ctx context.Context, query string) ([]model.Item, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Item{}, nil
	}
	return s.items.Search(ctx, query, searchLimit)
}

func (s *itemService) publish(actor model.Actor, action string, item *model.Item, message string) {
	s.events.Publish(ws.Event{
		Type:    "item_update",
		Action:  action,
		Data:    item.ToResponse(),
		User:    eventUser(actor),
		Message: message,
	})
}
