package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 5000
	maxCategoryLen    = 100
)

var imageFields = []string{"image1", "image2", "image3", "image4"}

// ProductAdd accepts the admin multipart form. maxUploadBytes bounds the whole body.
func ProductAdd(svc product.Service, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := validators.ParseMultipartForm(w, r, maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		input, err := productInputFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		for _, header := range validators.FormFiles(r, imageFields...) {
			file, err := header.Open()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image"))
				return
			}
			defer file.Close()
			input.Images = append(input.Images, product.ImageUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			})
		}

		created, err := svc.Add(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, responses.Fields{
			"message": "Product created successfully",
			"product": created,
		})
	}
}

func productInputFromForm(r *http.Request) (product.AddProductInput, error) {
	input := product.AddProductInput{
		Name:        validators.FormValue(r, "name", maxNameLen),
		Description: validators.FormValue(r, "description", maxDescriptionLen),
		Category:    validators.FormValue(r, "category", maxCategoryLen),
		SubCategory: validators.FormValue(r, "subCategory", maxCategoryLen),
	}

	rawPrice := validators.FormValue(r, "price", 32)
	if input.Name == "" || rawPrice == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "product name and price are required")
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a number")
	}
	input.Price = price

	if raw := validators.FormValue(r, "bestSeller", 8); raw != "" {
		best, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "bestSeller must be true or false")
		}
		input.BestSeller = best
	}

	sizes, err := product.ParseSizes(r.FormValue("sizes"))
	if err != nil {
		return input, err
	}
	input.Sizes = sizes
	return input, nil
}

func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Fields{
			"message":  "Products fetched successfully",
			"products": list,
		})
	}
}

func ProductSingle(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Fields{"product": p})
	}
}

func ProductRemove(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Product removed successfully")
	}
}

func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body product.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Fields{
			"message": "Product updated successfully",
			"product": updated,
		})
	}
}
