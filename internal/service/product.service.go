package service

import (
	"context"
	"fmt"

	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

type ProductService interface {
	List(ctx context.Context, page, limit int) (*domain.ProductPage, error)
	Search(ctx context.Context, query string, page, limit int) (*domain.ProductPage, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type CreateProductInput struct {
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unitPrice"`
	ProductCode int64   `json:"productCode"`
	Quantity    int     `json:"quantity"`
}

type productService struct {
	productRepo repo.ProductRepo
}

func NewProductService(productRepo repo.ProductRepo) ProductService {
	return &productService{productRepo: productRepo}
}

// normalizePage applies the original API defaults: page 1, 10 per page.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func (s *productService) List(ctx context.Context, page, limit int) (*domain.ProductPage, error) {
	page, limit = normalizePage(page, limit)
	data, total, err := s.productRepo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &domain.ProductPage{Data: data, Total: total}, nil
}

func (s *productService) Search(ctx context.Context, query string, page, limit int) (*domain.ProductPage, error) {
	page, limit = normalizePage(page, limit)
	data, total, err := s.productRepo.Search(ctx, query, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &domain.ProductPage{Data: data, Total: total}, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ProductNotFound(id)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrValidation)
	}
	if input.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price must not be negative", domain.ErrValidation)
	}
	if input.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", domain.ErrValidation)
	}

	product := &domain.Product{
		Name:        input.Name,
		UnitPrice:   input.UnitPrice,
		ProductCode: input.ProductCode,
		Quantity:    input.Quantity,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ProductNotFound(id)
	}
	return nil
}
