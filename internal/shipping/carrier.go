package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shop-service/internal/service"
)

// CarrierAPIProvider — внешний API перевозчика; его отказ не валит весь расчёт
// (реестр провайдеров терпит единичные сбои)
type CarrierAPIProvider struct {
	name   string
	apiURL string
	http   *http.Client
}

func NewCarrierAPIProvider(name, apiURL string) *CarrierAPIProvider {
	return &CarrierAPIProvider{
		name:   name,
		apiURL: apiURL,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *CarrierAPIProvider) Name() string { return p.name }

type carrierRequest struct {
	DestinationZip string        `json:"destination_zip"`
	Items          []carrierItem `json:"items"`
}

type carrierItem struct {
	WeightGrams int32 `json:"weight_grams"`
	WidthCm     int32 `json:"width_cm"`
	HeightCm    int32 `json:"height_cm"`
	LengthCm    int32 `json:"length_cm"`
	Quantity    int32 `json:"quantity"`
}

type carrierOption struct {
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	DeliveryDays int32  `json:"delivery_days"`
}

func (p *CarrierAPIProvider) Calculate(ctx context.Context, destinationZip string, items []service.ShippingItem) ([]service.ShippingOption, error) {
	req := carrierRequest{DestinationZip: destinationZip}
	for _, it := range items {
		req.Items = append(req.Items, carrierItem{
			WeightGrams: it.WeightGrams,
			WidthCm:     it.WidthCm,
			HeightCm:    it.HeightCm,
			LengthCm:    it.LengthCm,
			Quantity:    it.Quantity,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("carrier %s unreachable: %w", p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("carrier %s API error (%d)", p.name, resp.StatusCode)
	}

	var options []carrierOption
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, fmt.Errorf("carrier %s bad response: %w", p.name, err)
	}

	out := make([]service.ShippingOption, 0, len(options))
	for _, o := range options {
		out = append(out, service.ShippingOption{
			Name:         o.Name,
			PriceCents:   o.PriceCents,
			DeliveryDays: o.DeliveryDays,
			Provider:     p.name,
		})
	}
	return out, nil
}
