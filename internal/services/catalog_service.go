package services

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"apotek/internal/domain"
	"apotek/internal/repos"
	"apotek/internal/storage"
	"apotek/internal/validate"
)

type CatalogService struct {
	Cats    *repos.CategoryRepo
	Prods   *repos.ProductRepo
	Storage *storage.Local
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo, st *storage.Local) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods, Storage: st}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Cats.List(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.Prods.Get(ctx, id)
}

// Search returns every product when q is empty and category is "all";
// otherwise q narrows by substring and category by equality. Newest first.
func (s *CatalogService) Search(ctx context.Context, q, category string) ([]domain.Product, error) {
	cat, ok := validate.Category(category)
	if !ok {
		return nil, invalid("category", "unknown category")
	}
	term, ok := validate.Q(q)
	if !ok {
		return nil, invalid("q", "search term is too long")
	}
	return s.Prods.Search(ctx, term, cat)
}

func (s *CatalogService) BestSellers(ctx context.Context, n int) ([]domain.Product, error) {
	return s.Prods.BestSellers(ctx, n)
}

// ---------- Admin product management ----------

type ProductInput struct {
	Name                 string `json:"name" form:"name"`
	Brand                string `json:"brand" form:"brand"`
	Tags                 string `json:"tags" form:"tags"`
	Category             string `json:"category" form:"category"`
	Price                int64  `json:"price" form:"price"`
	OriginalPrice        *int64 `json:"original_price" form:"original_price"`
	Stock                int    `json:"stock" form:"stock"`
	Description          string `json:"description" form:"description"`
	RequiresPrescription bool   `json:"requires_prescription" form:"requires_prescription"`
}

func (in ProductInput) apply(p *domain.Product) error {
	name, ok := validate.Text(in.Name, 120)
	if !ok {
		return invalid("name", "name is required (max 120)")
	}
	cat, ok := validate.Category(in.Category)
	if !ok || cat == domain.CategoryAll {
		return invalid("category", "unknown category")
	}
	if in.Price <= 0 {
		return invalid("price", "price must be positive")
	}
	if in.OriginalPrice != nil && *in.OriginalPrice <= 0 {
		in.OriginalPrice = nil
	}
	if in.Stock < 0 {
		return invalid("stock", "stock cannot be negative")
	}
	if len(in.Description) > 2000 {
		return invalid("description", "description too long")
	}
	p.Name = name
	p.Brand = strings.TrimSpace(in.Brand)
	p.Tags = normalizeTags(in.Tags)
	p.Category = cat
	p.Price = in.Price
	p.OriginalPrice = in.OriginalPrice
	p.Stock = in.Stock
	p.Description = strings.TrimSpace(in.Description)
	p.RequiresPrescription = in.RequiresPrescription
	return nil
}

func normalizeTags(s string) string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}

// storedCategory rejects category keys with no categories row.
func (s *CatalogService) storedCategory(ctx context.Context, id string) error {
	ok, err := s.Cats.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("category", "unknown category")
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	var p domain.Product
	if err := in.apply(&p); err != nil {
		return domain.Product{}, err
	}
	if err := s.storedCategory(ctx, p.Category); err != nil {
		return domain.Product{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = domain.Now()
	p.UpdatedAt = p.CreatedAt
	if err := s.Prods.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// UpdateProduct edits catalog fields. Stock goes through InventoryService.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	in.Stock = p.Stock
	if err := in.apply(&p); err != nil {
		return domain.Product{}, err
	}
	if err := s.storedCategory(ctx, p.Category); err != nil {
		return domain.Product{}, err
	}
	p.UpdatedAt = domain.Now()
	if err := s.Prods.Update(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.Prods.Delete(ctx, id)
}

// UploadImage stores a product photo (max 2 MiB) and points the product at it.
func (s *CatalogService) UploadImage(ctx context.Context, id string, r io.Reader) (string, error) {
	if _, err := s.Prods.Get(ctx, id); err != nil {
		return "", err
	}
	rel, err := s.Storage.Upload(storage.BucketProducts, "", r, storage.MaxProductImage)
	if err != nil {
		return "", err
	}
	url := s.Storage.PublicURL(storage.BucketProducts, rel)
	return url, s.Prods.SetImage(ctx, id, url)
}
