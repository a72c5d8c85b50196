package wildberries

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gomarketplace_hub/internal/core/adapters"
)

const (
	defaultContentURL     = "https://content-api.wildberries.ru"
	defaultPricesURL      = "https://discounts-prices-api.wildberries.ru"
	defaultMarketplaceURL = "https://marketplace-api.wildberries.ru"
	defaultCommonURL      = "https://common-api.wildberries.ru"
)

// Config: учётные данные продавца WB. BaseURL переопределяет все хосты сразу
// (песочница, тесты).
type Config struct {
	Token   string `json:"token" validate:"required"`
	BaseURL string `json:"base_url" validate:"omitempty,url"`
}

type Cursor struct {
	Limit     int    `json:"limit"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	NmID      int    `json:"nmID,omitempty"`
	Total     int    `json:"total,omitempty"`
}

type filter struct {
	WithPhoto  int      `json:"withPhoto"`
	TextSearch string   `json:"textSearch,omitempty"`
	Brands     []string `json:"brands,omitempty"`
}

type cardsRequest struct {
	Settings struct {
		Cursor Cursor `json:"cursor"`
		Filter filter `json:"filter"`
	} `json:"settings"`
}

type photo struct {
	Big string `json:"big"`
}

type charc struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type size struct {
	TechSize string   `json:"techSize"`
	Skus     []string `json:"skus"`
}

// Card: карточка товара WB (content/v2/get/cards/list).
type Card struct {
	NmID            int     `json:"nmID"`
	VendorCode      string  `json:"vendorCode"`
	SubjectName     string  `json:"subjectName"`
	Brand           string  `json:"brand"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Photos          []photo `json:"photos"`
	Characteristics []charc `json:"characteristics"`
	Sizes           []size  `json:"sizes"`
	UpdatedAt       string  `json:"updatedAt"`
}

func (c Card) toExternal() adapters.ExternalProduct {
	p := adapters.ExternalProduct{
		ExternalID:  strconv.Itoa(c.NmID),
		SKU:         c.VendorCode,
		Name:        c.Title,
		Description: c.Description,
		Brand:       c.Brand,
		Category:    c.SubjectName,
	}
	for _, s := range c.Sizes {
		if len(s.Skus) > 0 {
			p.Barcode = s.Skus[0]
			break
		}
	}
	for _, ph := range c.Photos {
		if ph.Big != "" {
			p.Images = append(p.Images, ph.Big)
		}
	}
	if len(c.Characteristics) > 0 {
		p.Attributes = make(map[string]any, len(c.Characteristics))
		for _, ch := range c.Characteristics {
			p.Attributes[ch.Name] = ch.Value
		}
	}
	return p
}

type cardsResponse struct {
	Cards  []Card `json:"cards"`
	Cursor Cursor `json:"cursor"`
}

type goodsRequest struct {
	NmList []int `json:"nmList"`
}

type goodsResponse struct {
	Data struct {
		ListGoods []struct {
			NmID  int `json:"nmID"`
			Sizes []struct {
				Price           decimal.Decimal `json:"price"`
				DiscountedPrice decimal.Decimal `json:"discountedPrice"`
			} `json:"sizes"`
		} `json:"listGoods"`
	} `json:"data"`
}

type stocksRequest struct {
	Skus []string `json:"skus"`
}

type stocksResponse struct {
	Stocks []struct {
		Sku    string `json:"sku"`
		Amount int    `json:"amount"`
	} `json:"stocks"`
}

type warehouse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func parseNmIDs(ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("wildberries: nmID %q is not a number", id)
		}
		out = append(out, n)
	}
	return out, nil
}
