package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func newRestockCmd(open Opener) *cobra.Command {
	var (
		productRef string
		size       string
		stock      int
	)
	cmd := &cobra.Command{
		Use:   "restock",
		Short: "Set the absolute stock level of a product size",
		Long: `Set the stock for one (product, size) pair. --product accepts the product id or
its exact name. Unknown sizes are added to the product.

Examples:
  storefrontctl restock --product "Classic Tee" --size M --stock 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			size = strings.TrimSpace(size)
			if size == "" {
				return fmt.Errorf("--size is required")
			}
			if stock < 0 {
				return fmt.Errorf("--stock must be non-negative")
			}
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				repo := product.NewRepository(env.DB.DB())
				p, err := resolveProduct(ctx, repo, productRef)
				if err != nil {
					return err
				}
				if err := repo.SetStock(ctx, p.ID, size, stock); err != nil {
					return fmt.Errorf("set stock: %w", err)
				}
				if env.Logger != nil {
					env.Logger.Info(env.Logger.WithFields(ctx, map[string]any{
						"product_id": p.ID.String(),
						"size":       size,
						"stock":      stock,
					}), "stock level set")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s size %s stock set to %d\n", p.Name, size, stock)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&productRef, "product", "", "product id or name (required)")
	cmd.Flags().StringVar(&size, "size", "", "size label, e.g. M (required)")
	cmd.Flags().IntVar(&stock, "stock", 0, "absolute stock level")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("stock")
	return cmd
}

func resolveProduct(ctx context.Context, repo *product.Repository, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	var (
		p   *models.Product
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		p, err = repo.FindByID(ctx, id)
	} else {
		p, err = repo.FindByName(ctx, ref)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

type lowStockJSON struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Size        string    `json:"size"`
	Stock       int       `json:"stock"`
}

func newListLowStockCmd(open Opener) *cobra.Command {
	var (
		threshold  int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list-low-stock",
		Short: "List product sizes at or below a stock threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				limit := threshold
				if !cmd.Flags().Changed("threshold") {
					limit = env.Config.Checkout.LowStockThreshold
				}
				rows, err := product.NewRepository(env.DB.DB()).ListLowStock(ctx, limit)
				if err != nil {
					return fmt.Errorf("list low stock: %w", err)
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					payload := make([]lowStockJSON, 0, len(rows))
					for _, row := range rows {
						payload = append(payload, lowStockJSON(row))
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(payload)
				}

				if len(rows) == 0 {
					fmt.Fprintf(out, "no sizes at or below %d\n", limit)
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "PRODUCT\tSIZE\tSTOCK\tID")
				for _, row := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", row.ProductName, row.Size, row.Stock, row.ProductID)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "stock threshold (defaults to STOREFRONT_LOW_STOCK_THRESHOLD)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}
