package yandex

import (
	"github.com/shopspring/decimal"
	"gomarketplace_hub/internal/core/adapters"
)

const defaultBaseURL = "https://api.partner.market.yandex.ru"

type Config struct {
	APIKey     string `json:"api_key" validate:"required"`
	BusinessID int64  `json:"business_id" validate:"required"`
	CampaignID int64  `json:"campaign_id"`
	BaseURL    string `json:"base_url" validate:"omitempty,url"`
}

type paging struct {
	NextPageToken string `json:"nextPageToken"`
}

type mappingsRequest struct {
	OfferIDs    []string `json:"offerIds,omitempty"`
	VendorNames []string `json:"vendorNames,omitempty"`
}

type money struct {
	Value      decimal.Decimal `json:"value"`
	CurrencyID string          `json:"currencyId"`
}

// Offer: товар в каталоге продавца Маркета.
type Offer struct {
	OfferID     string   `json:"offerId"`
	Name        string   `json:"name"`
	Vendor      string   `json:"vendor"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Barcodes    []string `json:"barcodes"`
	Pictures    []string `json:"pictures"`
	BasicPrice  *money   `json:"basicPrice"`
}

func (o Offer) toExternal() adapters.ExternalProduct {
	p := adapters.ExternalProduct{
		ExternalID:  o.OfferID,
		SKU:         o.OfferID,
		Name:        o.Name,
		Description: o.Description,
		Brand:       o.Vendor,
		Category:    o.Category,
		Images:      o.Pictures,
	}
	if len(o.Barcodes) > 0 {
		p.Barcode = o.Barcodes[0]
	}
	if o.BasicPrice != nil {
		v := o.BasicPrice.Value
		p.Price = &v
	}
	return p
}

type mappingsResponse struct {
	Result struct {
		Paging        paging `json:"paging"`
		OfferMappings []struct {
			Offer Offer `json:"offer"`
		} `json:"offerMappings"`
	} `json:"result"`
}

type pricesRequest struct {
	OfferIDs []string `json:"offerIds"`
}

type pricesResponse struct {
	Result struct {
		Offers []struct {
			OfferID string `json:"offerId"`
			Price   *money `json:"price"`
		} `json:"offers"`
	} `json:"result"`
}

type warehousesResponse struct {
	Result struct {
		Warehouses []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"warehouses"`
	} `json:"result"`
}
