package services

import (
	"buttergolf/internal/repos"
	"buttergolf/internal/validate"
)

type WaitlistService struct {
	Repo *repos.WaitlistRepo
}

func NewWaitlistService(r *repos.WaitlistRepo) *WaitlistService { return &WaitlistService{Repo: r} }

// Join adds an email once; joining again reports created=false.
func (s *WaitlistService) Join(email, source string) (bool, error) {
	e, ok := validate.Email(email)
	if !ok {
		return false, invalid("invalid email")
	}
	src, ok := validate.Text(source, 0, 40)
	if !ok {
		return false, invalid("source is too long")
	}
	return s.Repo.Join(e, src)
}
