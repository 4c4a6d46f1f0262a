// Package shipping — реализации провайдеров расчёта доставки.
package shipping

import (
	"context"

	"shop-service/internal/service"
)

// FlatRateProvider — табличный расчёт: базовая ставка плюс надбавка за вес
type FlatRateProvider struct {
	options []FlatRateOption
}

type FlatRateOption struct {
	Name         string
	BaseCents    int64
	CentsPerKg   int64
	DeliveryDays int32
}

func NewFlatRateProvider(options ...FlatRateOption) *FlatRateProvider {
	if len(options) == 0 {
		options = []FlatRateOption{
			{Name: "Standard", BaseCents: 1500, CentsPerKg: 200, DeliveryDays: 7},
			{Name: "Express", BaseCents: 3500, CentsPerKg: 350, DeliveryDays: 2},
		}
	}
	return &FlatRateProvider{options: options}
}

func (p *FlatRateProvider) Name() string { return "flat-rate" }

func (p *FlatRateProvider) Calculate(ctx context.Context, destinationZip string, items []service.ShippingItem) ([]service.ShippingOption, error) {
	var totalGrams int64
	for _, it := range items {
		totalGrams += int64(it.WeightGrams) * int64(it.Quantity)
	}
	kg := (totalGrams + 999) / 1000 // округление веса вверх до килограмма

	out := make([]service.ShippingOption, 0, len(p.options))
	for _, o := range p.options {
		out = append(out, service.ShippingOption{
			Name:         o.Name,
			PriceCents:   o.BaseCents + o.CentsPerKg*kg,
			DeliveryDays: o.DeliveryDays,
			Provider:     p.Name(),
		})
	}
	return out, nil
}
