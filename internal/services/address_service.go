package services

import (
	"buttergolf/internal/domain"
	"buttergolf/internal/repos"
	"buttergolf/internal/validate"
)

type AddressService struct {
	Repo *repos.AddressRepo
}

func NewAddressService(r *repos.AddressRepo) *AddressService { return &AddressService{Repo: r} }

type AddressInput struct {
	Name      string `json:"name"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2"`
	City      string `json:"city"`
	County    string `json:"county"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"isDefault"`
}

func (in AddressInput) normalize() (repos.AddressInput, error) {
	var out repos.AddressInput
	var ok bool
	if out.Name, ok = validate.Text(in.Name, 1, 80); !ok {
		return out, invalid("name is required")
	}
	if out.Line1, ok = validate.Text(in.Line1, 1, 120); !ok {
		return out, invalid("line1 is required")
	}
	if out.Line2, ok = validate.Text(in.Line2, 0, 120); !ok {
		return out, invalid("line2 is too long")
	}
	if out.City, ok = validate.Text(in.City, 1, 80); !ok {
		return out, invalid("city is required")
	}
	if out.County, ok = validate.Text(in.County, 0, 80); !ok {
		return out, invalid("county is too long")
	}
	if out.Postcode, ok = validate.Postcode(in.Postcode); !ok {
		return out, invalid("invalid postcode")
	}
	if out.Country, ok = validate.Country(in.Country); !ok {
		return out, invalid("country must be a two-letter code")
	}
	if out.Phone, ok = validate.Text(in.Phone, 0, 30); !ok {
		return out, invalid("phone is too long")
	}
	return out, nil
}

func (s *AddressService) List(u *domain.User) ([]domain.Address, error) {
	return s.Repo.List(u.ID)
}

// Create stores an address. The user's first address, or one sent with
// isDefault, becomes the only default.
func (s *AddressService) Create(u *domain.User, in AddressInput) (domain.Address, error) {
	ai, err := in.normalize()
	if err != nil {
		return domain.Address{}, err
	}
	return s.Repo.Create(u.ID, ai, in.IsDefault)
}

func (s *AddressService) Update(u *domain.User, id string, in AddressInput) (domain.Address, error) {
	ai, err := in.normalize()
	if err != nil {
		return domain.Address{}, err
	}
	a, err := s.Repo.Update(u.ID, id, ai, in.IsDefault)
	return a, fromRepo(err, "address")
}

func (s *AddressService) Delete(u *domain.User, id string) error {
	return fromRepo(s.Repo.Delete(u.ID, id), "address")
}

func (s *AddressService) SetDefault(u *domain.User, id string) error {
	return fromRepo(s.Repo.SetDefault(u.ID, id), "address")
}
