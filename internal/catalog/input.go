package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormValue is a raw form field. It accepts both JSON strings and JSON numbers
// so that "19.99" and 19.99 decode to the same value.
type FormValue string

func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("form value must be a string or a number: %w", err)
	}
	*v = FormValue(n.String())
	return nil
}

// ProductForm carries the fields of the create/edit form as typed by the user.
type ProductForm struct {
	Title       string    `json:"title" example:"Wireless Mouse"`
	Description string    `json:"description" example:"Ergonomic 2.4GHz mouse"`
	Price       FormValue `json:"price" swaggertype:"string" example:"19.99"`
	Stock       FormValue `json:"stock" swaggertype:"string" example:"5"`
	Brand       string    `json:"brand" example:"Logi"`
	Category    string    `json:"category" example:"accessories"`
}

// ProductInput is the validated payload submitted to the product service.
type ProductInput struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Brand       string  `json:"brand" validate:"required"`
	Category    string  `json:"category" validate:"required"`
}

// Parse trims text fields, coerces price and stock to numbers and validates
// the result. Every returned error wraps ErrInvalidProduct.
func (f ProductForm) Parse() (ProductInput, error) {
	price, err := parsePrice(string(f.Price))
	if err != nil {
		return ProductInput{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	stock, err := parseStock(string(f.Stock))
	if err != nil {
		return ProductInput{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}

	in := ProductInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Price:       price,
		Stock:       stock,
		Brand:       strings.TrimSpace(f.Brand),
		Category:    strings.TrimSpace(f.Category),
	}
	if err := in.Validate(); err != nil {
		return ProductInput{}, err
	}
	return in, nil
}

func (in ProductInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(fields, ", "))
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("price is required")
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("price %q is not a number", raw)
	}
	if price < 0 {
		return 0, errors.New("price must not be negative")
	}
	return price, nil
}

func parseStock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("stock is required")
	}
	stock, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("stock %q is not a whole number", raw)
		}
		if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
			return 0, fmt.Errorf("stock %q is out of range", raw)
		}
		stock = int(f)
	}
	if stock < 0 {
		return 0, errors.New("stock must not be negative")
	}
	return stock, nil
}
