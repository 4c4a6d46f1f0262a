package service

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type ShippingItem struct {
	WeightGrams int32
	WidthCm     int32
	HeightCm    int32
	LengthCm    int32
	Quantity    int32
}

type ShippingOption struct {
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	DeliveryDays int32  `json:"delivery_days"`
	Provider     string `json:"provider"`
}

type ShippingProvider interface {
	Name() string
	Calculate(ctx context.Context, destinationZip string, items []ShippingItem) ([]ShippingOption, error)
}

// ShippingRegistry опрашивает всех провайдеров параллельно.
// Отказ одного провайдера даёт ноль опций, а не ошибку всего расчёта.
type ShippingRegistry struct {
	providers []ShippingProvider
	log       *zap.Logger
}

func NewShippingRegistry(log *zap.Logger, providers ...ShippingProvider) *ShippingRegistry {
	return &ShippingRegistry{providers: providers, log: log}
}

func (r *ShippingRegistry) Calculate(ctx context.Context, destinationZip string, items []ShippingItem) []ShippingOption {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		options []ShippingOption
	)

	for _, p := range r.providers {
		wg.Add(1)
		go func(p ShippingProvider) {
			defer wg.Done()
			opts, err := p.Calculate(ctx, destinationZip, items)
			if err != nil {
				r.log.Warn("shipping provider failed",
					zap.String("provider", p.Name()), zap.Error(err))
				return
			}
			mu.Lock()
			options = append(options, opts...)
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	sort.Slice(options, func(i, j int) bool {
		return options[i].PriceCents < options[j].PriceCents
	})
	return options
}
