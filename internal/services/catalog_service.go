package services

import (
	"errors"
	"strings"

	"buttergolf/internal/domain"
	"buttergolf/internal/repos"
	"buttergolf/internal/validate"
)

type CatalogService struct {
	Brands *repos.BrandRepo
	Prods  *repos.ProductRepo
}

func NewCatalogService(brands *repos.BrandRepo, prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Brands: brands, Prods: prods}
}

func (s *CatalogService) ListBrands() ([]domain.Brand, error) {
	return s.Brands.List()
}

func (s *CatalogService) ListModels(brandSlug string) ([]domain.ClubModel, error) {
	b, err := s.Brands.BySlug(brandSlug)
	if err != nil {
		return nil, fromRepo(err, "brand")
	}
	return s.Brands.Models(b.ID)
}

func (s *CatalogService) ListCategories() []string {
	return domain.Categories
}

func paging(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 24
	}
	return pageSize, (page - 1) * pageSize
}

// ProductQuery is the public browse filter; Brand is a brand slug.
type ProductQuery struct {
	Category  string
	Brand     string
	Condition string
	MinPrice  float64
	MaxPrice  float64
	Sort      string
	Page      int
	PageSize  int
}

func (s *CatalogService) ListProducts(q ProductQuery) ([]domain.Product, error) {
	f := repos.ProductFilter{MinPrice: q.MinPrice, MaxPrice: q.MaxPrice}
	f.Limit, f.Offset = paging(q.Page, q.PageSize)

	if q.Category != "" {
		c, ok := validate.Category(q.Category)
		if !ok {
			return nil, invalid("unknown category %q", q.Category)
		}
		f.Category = c
	}
	if q.Condition != "" {
		c, ok := validate.Condition(q.Condition)
		if !ok {
			return nil, invalid("unknown condition %q", q.Condition)
		}
		f.Condition = c
	}
	if q.Brand != "" {
		b, err := s.Brands.BySlug(strings.ToLower(q.Brand))
		if errors.Is(err, repos.ErrNotFound) {
			// unknown brand simply matches nothing
			return []domain.Product{}, nil
		}
		if err != nil {
			return nil, err
		}
		f.BrandID = b.ID
	}
	switch q.Sort {
	case "", "newest", "price_asc", "price_desc":
		f.Sort = q.Sort
	default:
		return nil, invalid("unknown sort %q", q.Sort)
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return nil, invalid("minPrice is above maxPrice")
	}
	return s.Prods.List(f)
}

func (s *CatalogService) GetProduct(id string) (domain.Product, error) {
	p, err := s.Prods.Get(id)
	return p, fromRepo(err, "product")
}

// Search matches unsold listings. A blank query returns nothing without
// touching the database.
func (s *CatalogService) Search(q string, page, pageSize int) ([]domain.Product, error) {
	if strings.TrimSpace(q) == "" {
		return []domain.Product{}, nil
	}
	q, ok := validate.Q(q)
	if !ok {
		return nil, invalid("invalid search query")
	}
	limit, offset := paging(page, pageSize)
	return s.Prods.Search(q, limit, offset)
}

// ListingInput is the client's listing payload.
type ListingInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	BrandID     string   `json:"brandId"`
	ModelID     string   `json:"modelId"`
	BrandName   string   `json:"brandName"`
	Condition   string   `json:"condition"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
}

func (s *CatalogService) normalize(in ListingInput) (repos.ProductInput, error) {
	var out repos.ProductInput
	var ok bool
	if out.Title, ok = validate.Text(in.Title, 3, 120); !ok {
		return out, invalid("title must be 3-120 characters")
	}
	if out.Description, ok = validate.Text(in.Description, 0, 5000); !ok {
		return out, invalid("description is too long")
	}
	if out.Category, ok = validate.Category(in.Category); !ok {
		return out, invalid("unknown category %q", in.Category)
	}
	if out.Condition, ok = validate.Condition(in.Condition); !ok {
		return out, invalid("unknown condition %q", in.Condition)
	}
	if !validate.Price(in.Price) {
		return out, invalid("price must be a positive amount with at most two decimals")
	}
	out.Price = in.Price

	if len(in.Images) == 0 || len(in.Images) > 10 {
		return out, invalid("a listing needs 1-10 images")
	}
	for _, raw := range in.Images {
		u, ok := validate.ImageURL(raw)
		if !ok {
			return out, invalid("images must be https URLs")
		}
		out.Images = append(out.Images, u)
	}

	if in.BrandID != "" {
		b, err := s.Brands.ByID(in.BrandID)
		if err != nil {
			return out, invalidRef(err, "unknown brand")
		}
		out.BrandID, out.BrandName = b.ID, b.Name
		if in.ModelID != "" {
			m, err := s.Brands.Model(b.ID, in.ModelID)
			if err != nil {
				return out, invalidRef(err, "unknown model for brand")
			}
			out.ModelID = m.ID
		}
	} else {
		if in.ModelID != "" {
			return out, invalid("modelId requires brandId")
		}
		if out.BrandName, ok = validate.Text(in.BrandName, 0, 60); !ok {
			return out, invalid("brandName is too long")
		}
	}
	return out, nil
}

func invalidRef(err error, msg string) error {
	if errors.Is(err, repos.ErrNotFound) {
		return invalid(msg)
	}
	return err
}

func (s *CatalogService) CreateListing(seller *domain.User, in ListingInput) (domain.Product, error) {
	pi, err := s.normalize(in)
	if err != nil {
		return domain.Product{}, err
	}
	return s.Prods.Create(seller.ID, pi)
}

func (s *CatalogService) UpdateListing(seller *domain.User, id string, in ListingInput) (domain.Product, error) {
	if err := s.ownedUnsold(seller, id); err != nil {
		return domain.Product{}, err
	}
	pi, err := s.normalize(in)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.Prods.Update(id, seller.ID, pi); err != nil {
		return domain.Product{}, fromRepo(err, "listing")
	}
	return s.GetProduct(id)
}

func (s *CatalogService) DeleteListing(seller *domain.User, id string) error {
	if err := s.ownedUnsold(seller, id); err != nil {
		return err
	}
	if err := s.Prods.Delete(id, seller.ID); err != nil {
		if errors.Is(err, repos.ErrStale) {
			return conflict("listing has order history and can't be deleted")
		}
		return err
	}
	return nil
}

func (s *CatalogService) ownedUnsold(seller *domain.User, id string) error {
	p, err := s.Prods.Get(id)
	if err != nil {
		return fromRepo(err, "product")
	}
	if p.SellerID != seller.ID {
		return forbidden("only the seller can change this listing")
	}
	if p.IsSold {
		return conflict("listing has already sold")
	}
	return nil
}
