package product

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// SizeInput is one requested size with its starting stock.
type SizeInput struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// ParseSizes accepts either `[{"size":"M","stock":3}]` or `["S","M"]`; bare names get zero stock.
func ParseSizes(raw string) ([]SizeInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var detailed []SizeInput
	if err := json.Unmarshal([]byte(raw), &detailed); err == nil {
		return detailed, nil
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err == nil {
		out := make([]SizeInput, 0, len(names))
		for _, name := range names {
			out = append(out, SizeInput{Size: name})
		}
		return out, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sizes format")
}

// SizeList is a sizes payload in either accepted shape.
type SizeList []SizeInput

// UnmarshalJSON lets JSON bodies send sizes the same two ways the multipart form does.
func (s *SizeList) UnmarshalJSON(data []byte) error {
	raw := string(data)
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		raw = encoded
	}
	parsed, err := ParseSizes(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func buildSizeRows(inputs []SizeInput) ([]models.ProductSize, error) {
	seen := make(map[string]struct{}, len(inputs))
	rows := make([]models.ProductSize, 0, len(inputs))
	for i, in := range inputs {
		size := strings.TrimSpace(in.Size)
		if size == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "size name is required")
		}
		if in.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stock for size %s must be non-negative", size))
		}
		if _, dup := seen[size]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate size %s", size))
		}
		seen[size] = struct{}{}
		rows = append(rows, models.ProductSize{Size: size, Stock: in.Stock, Position: i})
	}
	return rows, nil
}
