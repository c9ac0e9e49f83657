package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	"github.com/shopline-labs/commerce-core/internal/cart/domain"
	"github.com/shopline-labs/commerce-core/internal/shipping"
)

// Service is the cart engine: it owns the per-user working set of
// (variation, quantity) pairs and prices it against live catalog data.
type Service struct {
	log     *slog.Logger
	repo    CartRepository
	catalog Catalog
	tiers   []shipping.Tier
}

func NewService(log *slog.Logger, repo CartRepository, catalog Catalog) *Service {
	return &Service{log: log, repo: repo, catalog: catalog, tiers: shipping.DefaultTiers}
}

// GetOrCreate returns the user's cart, creating an empty one if absent.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	now := time.Now().UTC()
	cart = &domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem appends qty of a variation, or grows an existing line. The combined
// quantity may not exceed the variation's live available stock.
func (s *Service) AddItem(ctx context.Context, userID, variationID string, qty int) (*domain.Snapshot, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	variation, err := s.catalog.GetVariation(ctx, variationID)
	if err != nil {
		return nil, err
	}

	requested := qty
	if i := cart.ItemIndex(variationID); i >= 0 {
		requested += cart.Items[i].Quantity
	}
	if requested > variation.AvailableQuantity {
		return nil, &domain.QuantityExceedsStockError{
			VariationID: variationID,
			Requested:   requested,
			Available:   variation.AvailableQuantity,
		}
	}

	if i := cart.ItemIndex(variationID); i >= 0 {
		cart.Items[i].Quantity = requested
	} else {
		cart.Items = append(cart.Items, domain.CartItem{VariationID: variationID, Quantity: qty})
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.PriceSnapshot(ctx, userID)
}

// SetItemQuantity replaces an existing line's quantity, bounded by live stock.
// A missing line fails with ErrItemNotFound.
func (s *Service) SetItemQuantity(ctx context.Context, userID, variationID string, qty int) (*domain.Snapshot, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.ItemIndex(variationID)
	if i < 0 {
		return nil, domain.ErrItemNotFound
	}
	variation, err := s.catalog.GetVariation(ctx, variationID)
	if err != nil {
		return nil, err
	}
	if qty > variation.AvailableQuantity {
		return nil, &domain.QuantityExceedsStockError{
			VariationID: variationID,
			Requested:   qty,
			Available:   variation.AvailableQuantity,
		}
	}

	cart.Items[i].Quantity = qty
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.PriceSnapshot(ctx, userID)
}

// DecrementItem lowers a line by one; reaching zero removes the line.
func (s *Service) DecrementItem(ctx context.Context, userID, variationID string) (*domain.Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.ItemIndex(variationID)
	if i < 0 {
		return nil, domain.ErrItemNotFound
	}

	cart.Items[i].Quantity--
	if cart.Items[i].Quantity <= 0 {
		cart.RemoveAt(i)
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.PriceSnapshot(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, variationID string) (*domain.Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.ItemIndex(variationID)
	if i < 0 {
		return nil, domain.ErrItemNotFound
	}

	cart.RemoveAt(i)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.PriceSnapshot(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) (*domain.Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = []domain.CartItem{}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.PriceSnapshot(ctx, userID)
}

// PriceSnapshot prices the cart against live stock. Quantities are clamped to
// what is currently available; lines whose live stock dropped to zero are
// omitted from the response but stay in the stored cart, since checkout
// re-validates anyway. Totals are recomputed on every call.
func (s *Service) PriceSnapshot(ctx context.Context, userID string) (*domain.Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{Items: []domain.SnapshotItem{}}
	for _, item := range cart.Items {
		variation, err := s.catalog.GetVariation(ctx, item.VariationID)
		if errors.Is(err, catalogdomain.ErrVariationNotFound) {
			s.log.Warn("cart references unknown variation", "user_id", userID, "variation_id", item.VariationID)
			continue
		}
		if err != nil {
			return nil, err
		}

		qty := min(item.Quantity, variation.AvailableQuantity)
		if qty == 0 {
			continue
		}
		product, err := s.catalog.GetProductForVariation(ctx, item.VariationID)
		if err != nil {
			return nil, err
		}

		subTotal := int64(qty) * variation.EffectivePrice()
		snap.Items = append(snap.Items, domain.SnapshotItem{
			VariationID:   variation.ID,
			VariationName: variation.Name,
			ProductID:     product.ID,
			ProductName:   product.Name,
			Quantity:      qty,
			UnitPrice:     variation.UnitPrice,
			SalePrice:     variation.SalePrice,
			SubTotal:      subTotal,
		})
		snap.TotalPrice += subTotal
	}

	snap.ShippingFee, snap.ShippingFeePercentage = shipping.Calculate(snap.TotalPrice, s.tiers)
	snap.TotalAmount = snap.TotalPrice + snap.ShippingFee
	return snap, nil
}

func (s *Service) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, cart)
}
