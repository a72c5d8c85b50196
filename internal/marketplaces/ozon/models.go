package ozon

import (
	"strconv"

	"github.com/shopspring/decimal"
	"gomarketplace_hub/internal/core/adapters"
)

const defaultBaseURL = "https://api-seller.ozon.ru"

type Config struct {
	ClientID string `json:"client_id" validate:"required"`
	APIKey   string `json:"api_key" validate:"required"`
	BaseURL  string `json:"base_url" validate:"omitempty,url"`
}

type visibilityFilter struct {
	OfferID    []string `json:"offer_id,omitempty"`
	ProductID  []int64  `json:"product_id,omitempty"`
	Visibility string   `json:"visibility"`
}

type listRequest struct {
	Filter visibilityFilter `json:"filter"`
	LastID string           `json:"last_id,omitempty"`
	Limit  int              `json:"limit"`
}

type listResponse struct {
	Result struct {
		Items []struct {
			ProductID int64  `json:"product_id"`
			OfferID   string `json:"offer_id"`
		} `json:"items"`
		Total  int    `json:"total"`
		LastID string `json:"last_id"`
	} `json:"result"`
}

type infoRequest struct {
	OfferID   []string `json:"offer_id,omitempty"`
	ProductID []int64  `json:"product_id,omitempty"`
}

// ProductInfo: карточка товара из /v3/product/info/list.
type ProductInfo struct {
	ID           int64    `json:"id"`
	OfferID      string   `json:"offer_id"`
	Name         string   `json:"name"`
	Barcodes     []string `json:"barcodes"`
	PrimaryImage []string `json:"primary_image"`
	Images       []string `json:"images"`
	Price        string   `json:"price"`
	CategoryID   int64    `json:"description_category_id"`
}

func (p ProductInfo) toExternal() adapters.ExternalProduct {
	out := adapters.ExternalProduct{
		ExternalID: strconv.FormatInt(p.ID, 10),
		SKU:        p.OfferID,
		Name:       p.Name,
	}
	if len(p.Barcodes) > 0 {
		out.Barcode = p.Barcodes[0]
	}
	if p.CategoryID != 0 {
		out.Category = strconv.FormatInt(p.CategoryID, 10)
	}
	out.Images = append(out.Images, p.PrimaryImage...)
	out.Images = append(out.Images, p.Images...)
	if price, err := decimal.NewFromString(p.Price); err == nil {
		out.Price = &price
	}
	return out
}

type infoResponse struct {
	Items []ProductInfo `json:"items"`
}

type pricesRequest struct {
	Filter visibilityFilter `json:"filter"`
	Cursor string           `json:"cursor,omitempty"`
	Limit  int              `json:"limit"`
}

type pricesResponse struct {
	Items []struct {
		OfferID string `json:"offer_id"`
		Price   struct {
			Price          decimal.Decimal `json:"price"`
			MarketingPrice decimal.Decimal `json:"marketing_price"`
		} `json:"price"`
	} `json:"items"`
	Cursor string `json:"cursor"`
}

type stocksRequest struct {
	Filter visibilityFilter `json:"filter"`
	Cursor string           `json:"cursor,omitempty"`
	Limit  int              `json:"limit"`
}

type stocksResponse struct {
	Items []struct {
		OfferID string `json:"offer_id"`
		Stocks  []struct {
			Type     string `json:"type"`
			Present  int    `json:"present"`
			Reserved int    `json:"reserved"`
		} `json:"stocks"`
	} `json:"items"`
	Cursor string `json:"cursor"`
}

type warehousesResponse struct {
	Result []struct {
		WarehouseID int64  `json:"warehouse_id"`
		Name        string `json:"name"`
	} `json:"result"`
}
