package services

import (
	"errors"

	"buttergolf/internal/domain"
	"buttergolf/internal/repos"
)

type FavoriteService struct {
	Repo  *repos.FavoriteRepo
	Prods *repos.ProductRepo
}

func NewFavoriteService(r *repos.FavoriteRepo, prods *repos.ProductRepo) *FavoriteService {
	return &FavoriteService{Repo: r, Prods: prods}
}

type FavoritesView struct {
	ProductIDs []string         `json:"productIds"`
	Products   []domain.Product `json:"products"`
}

func (s *FavoriteService) List(u *domain.User) (FavoritesView, error) {
	favs, err := s.Repo.List(u.ID)
	if err != nil {
		return FavoritesView{}, err
	}
	prods, err := s.Repo.Products(u.ID)
	if err != nil {
		return FavoritesView{}, err
	}
	v := FavoritesView{ProductIDs: make([]string, 0, len(favs)), Products: prods}
	for _, f := range favs {
		v.ProductIDs = append(v.ProductIDs, f.ProductID)
	}
	return v, nil
}

// Add favorites a product; repeating it is harmless. Reports whether it was new.
func (s *FavoriteService) Add(u *domain.User, productID string) (bool, error) {
	if _, err := s.Prods.Get(productID); err != nil {
		return false, fromRepo(err, "product")
	}
	return s.Repo.Add(u.ID, productID)
}

// Remove unfavorites a product; a product that was never favorited is ErrNotFound.
func (s *FavoriteService) Remove(u *domain.User, productID string) error {
	err := s.Repo.Remove(u.ID, productID)
	if errors.Is(err, repos.ErrNotFound) {
		return notFound("favorite")
	}
	return err
}
