package orders

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stockEffect int

const (
	stockUnchanged stockEffect = iota
	stockRestore
	stockReapply
)

// planTransition decides whether from -> to is allowed and what it does to stock.
func planTransition(order *models.Order, to enums.OrderStatus) (stockEffect, error) {
	from := order.Status
	if order.PaymentMethod.RequiresGateway() && !order.IsPaid {
		return stockUnchanged, pkgerrors.New(pkgerrors.CodeStateConflict, "unpaid online orders cannot change status")
	}
	if from.IsTerminal() {
		return stockUnchanged, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders cannot change status")
	}

	switch {
	case to.IsReversal() && from.IsReversal():
		return stockUnchanged, nil
	case to.IsReversal():
		if order.StockApplied {
			return stockRestore, nil
		}
		return stockUnchanged, nil
	case from.IsReversal():
		if order.StockApplied {
			return stockUnchanged, nil
		}
		return stockReapply, nil
	case to.Rank() < from.Rank():
		return stockUnchanged, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order back from %s to %s", from, to)).
			WithDetails(map[string]any{"from": from, "to": to})
	default:
		return stockUnchanged, nil
	}
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status")
	}
	if target == enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders cannot be moved back to pending payment")
	}

	var (
		updated  *models.Order
		from     enums.OrderStatus
		restored int
		applied  int
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		from = order.Status
		effect, err := planTransition(order, target)
		if err != nil {
			return err
		}
		if from == target {
			updated = order
			return nil
		}

		stockApplied := order.StockApplied
		switch effect {
		case stockRestore:
			if restored, err = s.restoreStock(ctx, tx, order.Items); err != nil {
				return err
			}
			stockApplied = false
		case stockReapply:
			if err := s.applyStock(ctx, tx, order.Items); err != nil {
				return err
			}
			applied = totalUnits(order.Items)
			stockApplied = true
		}

		if err := repo.UpdateStatus(ctx, order.ID, target, stockApplied); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != target {
		s.metrics.IncTransition(string(from), string(target))
		s.metrics.AddStockRestored(restored)
		s.metrics.AddStockDecremented(applied)
		if s.logg != nil {
			logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, updated.ID.String()), map[string]any{
				"from": string(from),
				"to":   string(target),
			})
			s.logg.Info(logCtx, "order.status_changed")
		}
	}
	dto := FromModel(updated)
	return &dto, nil
}
