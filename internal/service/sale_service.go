package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	RecordSale(ctx context.Context, actor model.Actor, req *SaleRequest) (*SaleResult, error)
	ListSales(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
}

type SaleRequest struct {
	ItemName      string              `json:"itemName" validate:"required,notblank,max=255"`
	Quantity      int                 `json:"quantity" validate:"gte=1"`
	UnitPrice     decimal.Decimal     `json:"unitPrice" validate:"money"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash transfer pos credit"`
	CustomerName  string              `json:"customerName" validate:"max=255"`
	Remarks       string              `json:"remarks" validate:"max=500"`
}

type SaleResult struct {
	Sale   *model.Sale          `json:"sale"`
	Item   model.ItemResponse   `json:"item"`
	Credit *model.CreditSummary `json:"credit,omitempty"`
}

type saleService struct {
	db       *gorm.DB
	items    repository.ItemRepository
	sales    repository.SaleRepository
	credits  repository.CreditRepository
	retry    database.RetryOptions
	activity ActivityLogger
	events   EventPublisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewSaleService(
	db *gorm.DB,
	items repository.ItemRepository,
	sales repository.SaleRepository,
	credits repository.CreditRepository,
	retry database.RetryOptions,
	activity ActivityLogger,
	events EventPublisher,
	log zerolog.Logger,
) SaleService {
	return &saleService{
		db:       db,
		items:    items,
		sales:    sales,
		credits:  credits,
		retry:    retry,
		activity: activity,
		events:   events,
		log:      log,
		now:      utcNow,
	}
}

// RecordSale writes the sale, any item change it implies, and the credit
// debit in one transaction, retried as a unit on conflicts. A sale is never
// stored without its ledger debit.
func (s *saleService) RecordSale(ctx context.Context, actor model.Actor, req *SaleRequest) (*SaleResult, error) {
	// 1. Validasi input sebelum menyentuh database
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	itemName := strings.TrimSpace(req.ItemName)
	customer := strings.TrimSpace(req.CustomerName)
	if req.PaymentMethod == model.PaymentCredit && customer == "" {
		return nil, invalid("customer name is required for credit sales")
	}
	if err := policy.Check(actor.Role, policy.SaleRecord); err != nil {
		return nil, err
	}
	privileged := policy.Privileged(actor.Role)

	var result *SaleResult
	err := database.WithRetry(ctx, s.retry, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := s.now()

			// 2. Resolve item (create, reactivate or reprice when allowed)
			item, err := s.resolveItem(ctx, s.items.WithTx(tx), actor, privileged, itemName, req.UnitPrice, now)
			if err != nil {
				return err
			}

			sale := model.NewSale(item, req.Quantity, req.UnitPrice, req.PaymentMethod, customer, strings.TrimSpace(req.Remarks), actor.ID(), now)
			if sale.TotalAmount.GreaterThan(validator.MaxMoney) {
				return invalid("sale total %s exceeds %s", sale.TotalAmount, validator.MaxMoney)
			}
			res := &SaleResult{Sale: sale, Item: item.ToResponse()}

			// 3. Debit the ledger before the sale row so both commit together
			if sale.PaymentMethod == model.PaymentCredit {
				credit, err := applyCreditSale(ctx, s.credits.WithTx(tx), actor, customer, sale.TotalAmount, &sale.ID, now)
				if err != nil {
					return err
				}
				sale.CreditID = &credit.ID
				summary := credit.ToSummary()
				res.Credit = &summary
			}

			// 4. Simpan sale (immutable)
			if err := s.sales.WithTx(tx).Create(ctx, sale); err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("record sale: %w", err)
	}

	sale := result.Sale
	s.activity.Record(actor, model.ActionSaleRecorded,
		fmt.Sprintf("Recorded sale: %dx %s for %s", sale.Quantity, sale.ItemName, sale.TotalAmount.StringFixed(2)))
	s.events.Publish(ws.Event{
		Type:    "sale_update",
		Action:  "sale_recorded",
		Data:    sale,
		User:    eventUser(actor),
		Message: fmt.Sprintf("%s sold %dx %s (%s)", actor.Label(), sale.Quantity, sale.ItemName, sale.PaymentMethod),
	})
	if result.Credit != nil {
		s.events.Publish(ws.Event{
			Type:    "credit_update",
			Action:  "credit_charged",
			Data:    result.Credit,
			User:    eventUser(actor),
			Message: fmt.Sprintf("%s now owes %s", result.Credit.CustomerName, result.Credit.TotalOwed.StringFixed(2)),
		})
	}

	return result, nil
}

// resolveItem finds the item a sale names. Privileged actors may create an
// unknown item, bring a retired one back, or change its price on the way.
func (s *saleService) resolveItem(ctx context.Context, items repository.ItemRepository, actor model.Actor, privileged bool, name string, price decimal.Decimal, now time.Time) (*model.Item, error) {
	item, err := items.FindByNameKey(ctx, model.ItemNameKey(name))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !privileged {
			return nil, fmt.Errorf("%w: %q, ask an admin or manager to add it", ErrItemNotFound, name)
		}
		item = &model.Item{
			Name:          name,
			NameKey:       model.ItemNameKey(name),
			CurrentPrice:  price,
			Status:        model.ItemActive,
			CreatedBy:     actor.ID(),
			LastUpdatedBy: actor.ID(),
		}
		if err := items.Create(ctx, item); err != nil {
			return nil, err
		}
		s.log.Info().Str("item", name).Str("by", actor.ID()).Msg("item created from sale")
		return item, nil
	}
	if err != nil {
		return nil, err
	}

	if !item.IsActive() && !privileged {
		return nil, fmt.Errorf("%w: %q has been retired", ErrItemNotFound, item.Name)
	}

	fields := map[string]interface{}{}
	if !item.IsActive() {
		fields["status"] = model.ItemActive
		item.Status = model.ItemActive
	}
	if privileged && !item.CurrentPrice.Equal(price) {
		fields["current_price"] = price
		item.CurrentPrice = price
	}
	if len(fields) > 0 {
		fields["last_updated_by"] = actor.ID()
		item.LastUpdatedBy = actor.ID()
		item.UpdatedAt = now
		if err := items.Update(ctx, item.ID, fields); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// ListSales returns sales in [from, to), newest first
func (s *saleService) ListSales(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	if !to.After(from) {
		return nil, invalid("sales window end must be after its start")
	}
	return s.sales.FindBetween(ctx, from, to)
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}
