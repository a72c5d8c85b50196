package brands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gomarketplace_hub/internal/core/models"
)

const maxSuggestions = 10

const (
	ViaMapping = "mapping"
	ViaBrand   = "brand"
)

var (
	ErrBrandNotFound = errors.New("brand not found")
	ErrEmptyName     = errors.New("brand name is empty after normalization")
)

// Suggestion: кандидат и источник, по которому он найден (mapping или brand).
type Suggestion struct {
	BrandID int64  `json:"brand_id"`
	Name    string `json:"brand_name"`
	Via     string `json:"via"`
	Exact   bool   `json:"exact"`
}

// Suggestions: кандидаты для ручного сопоставления. Via пустой, если ничего не нашлось.
type Suggestions struct {
	Query      string       `json:"query"`
	Normalized string       `json:"normalized"`
	Via        string       `json:"via,omitempty"`
	Items      []Suggestion `json:"suggestions"`
}

type SynonymOptions struct {
	SyncEnabled *bool
	Settings    map[string]any
}

// Resolver сопоставляет названия брендов поставщика с брендами компании.
type Resolver struct {
	repo *Repository
	log  *zap.Logger
}

func NewResolver(repo *Repository, log *zap.Logger) *Resolver {
	return &Resolver{repo: repo, log: log.Named("brands")}
}

// Suggest: сначала подтверждённые синонимы, затем каталог брендов (точные совпадения выше
// вхождений, дальше по алфавиту).
func (r *Resolver) Suggest(ctx context.Context, companyID, supplierID int64, name string) (*Suggestions, error) {
	out := &Suggestions{Query: name, Normalized: Normalize(name), Items: []Suggestion{}}
	if out.Normalized == "" {
		return out, nil
	}

	mapped, err := r.repo.SynonymBrands(ctx, r.repo.DB(), companyID, supplierID, out.Normalized)
	if err != nil {
		return nil, err
	}
	if len(mapped) > 0 {
		out.Via = ViaMapping
		for _, b := range mapped {
			out.Items = append(out.Items, Suggestion{BrandID: b.ID, Name: b.Name, Via: ViaMapping, Exact: true})
		}
		out.Items = capped(out.Items)
		return out, nil
	}

	catalog, err := r.repo.ActiveBrands(ctx, r.repo.DB(), companyID)
	if err != nil {
		return nil, err
	}
	out.Items = capped(rankCatalog(catalog, out.Normalized))
	if len(out.Items) > 0 {
		out.Via = ViaBrand
	}
	return out, nil
}

// AddSynonym подтверждает соответствие. Повторный вызов с теми же аргументами ничего не меняет.
func (r *Resolver) AddSynonym(ctx context.Context, companyID, supplierID, brandID int64, name string, opts SynonymOptions) (*models.BrandSynonym, error) {
	s := &models.BrandSynonym{
		CompanyID:         companyID,
		SupplierID:        supplierID,
		BrandID:           brandID,
		ExternalBrandName: strings.TrimSpace(name),
		NormalizedName:    Normalize(name),
	}
	if s.NormalizedName == "" {
		return nil, ErrEmptyName
	}

	tx, err := r.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := r.repo.brandExists(ctx, tx, companyID, brandID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBrandNotFound
	}

	deactivated, err := r.repo.deactivateCompeting(ctx, tx, s)
	if err != nil {
		return nil, err
	}
	if err := r.repo.upsertSynonym(ctx, tx, s, opts.SyncEnabled, opts.Settings); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit synonym: %w", err)
	}

	r.log.Info("Brand synonym saved",
		zap.Int64("company_id", companyID), zap.Int64("supplier_id", supplierID),
		zap.Int64("brand_id", brandID), zap.String("normalized", s.NormalizedName),
		zap.Int64("deactivated", deactivated))
	return s, nil
}

// Resolve возвращает бренд только при уверенном совпадении: синоним или точное
// нормализованное имя. Промах - nil без ошибки.
func (r *Resolver) Resolve(ctx context.Context, companyID, supplierID int64, name string) (*int64, error) {
	return r.ResolveTx(ctx, r.repo.DB(), companyID, supplierID, name)
}

// ResolveTx: то же внутри чужой транзакции.
func (r *Resolver) ResolveTx(ctx context.Context, q Querier, companyID, supplierID int64, name string) (*int64, error) {
	normalized := Normalize(name)
	if normalized == "" {
		return nil, nil
	}

	mapped, err := r.repo.SynonymBrands(ctx, q, companyID, supplierID, normalized)
	if err != nil {
		return nil, err
	}
	if len(mapped) > 0 {
		return &mapped[0].ID, nil
	}

	catalog, err := r.repo.ActiveBrands(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	for _, b := range catalog {
		if Normalize(b.Name) == normalized {
			id := b.ID
			return &id, nil
		}
	}
	return nil, nil
}

func rankCatalog(catalog []models.Brand, normalized string) []Suggestion {
	var exact, partial []Suggestion
	for _, b := range catalog {
		bn := Normalize(b.Name)
		switch {
		case bn == "":
		case bn == normalized:
			exact = append(exact, Suggestion{BrandID: b.ID, Name: b.Name, Via: ViaBrand, Exact: true})
		case strings.Contains(bn, normalized) || strings.Contains(normalized, bn):
			partial = append(partial, Suggestion{BrandID: b.ID, Name: b.Name, Via: ViaBrand})
		}
	}
	sortByName(exact)
	sortByName(partial)
	return append(exact, partial...)
}

func sortByName(items []Suggestion) {
	c := collate.New(language.Russian, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(items[i].Name, items[j].Name) < 0
	})
}

func capped(items []Suggestion) []Suggestion {
	if len(items) > maxSuggestions {
		return items[:maxSuggestions]
	}
	return items
}
