package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"

	"huerta/internal/storefront/api"
	"huerta/internal/storefront/cart"
	"huerta/internal/storefront/checkout"
)

type cli struct {
	out     io.Writer
	opts    *options
	client  *api.Client
	session *checkout.Session
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return c.products(ctx)
	case "categories":
		return c.categories(ctx)
	case "cart":
		c.printCart()
		return nil
	case "add":
		return c.add(ctx, rest)
	case "set":
		if len(rest) != 2 {
			return usageError("set <productId> <qty>")
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return usageError("set <productId> <qty>")
		}
		return c.mutate(c.session.Cart().SetQuantity(rest[0], c.opts.variant, qty))
	case "remove":
		if len(rest) != 1 {
			return usageError("remove <productId>")
		}
		return c.mutate(c.session.Cart().Remove(rest[0], c.opts.variant))
	case "clear":
		return c.mutate(c.session.Cart().Clear())
	case "apply":
		if len(rest) != 1 {
			return usageError("apply <code>")
		}
		return c.apply(ctx, rest[0])
	case "unapply":
		return c.mutate(c.session.RemoveCode())
	case "checkout":
		return c.checkout(ctx)
	default:
		return &checkout.ValidationError{Message: fmt.Sprintf("Comando desconocido %q, usá --help", cmd)}
	}
}

func (c *cli) products(ctx context.Context) error {
	products, err := c.client.Products(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tPRECIO\tUNIDAD")
	for _, p := range products {
		price := "$" + p.EffectivePrice.StringFixed(2)
		if p.IsOnSale && p.SalePrice.Valid {
			price += " (antes $" + p.Price.StringFixed(2) + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, price, p.Unit)
	}
	return w.Flush()
}

func (c *cli) categories(ctx context.Context) error {
	categories, err := c.client.Categories(ctx)
	if err != nil {
		return err
	}
	for _, cat := range categories {
		fmt.Fprintf(c.out, "%s\t%s\n", cat.ID, cat.Name)
	}
	return nil
}

// add 从目录读取价格快照，快照只用于展示
func (c *cli) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("add <productId> [qty]")
	}
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return usageError("la cantidad debe ser un número positivo")
		}
		qty = n
	}
	p, err := c.client.Product(ctx, args[0])
	if errors.Is(err, api.ErrNotFound) {
		return &checkout.ValidationError{Field: "productId", Message: fmt.Sprintf("No existe el producto %s", args[0])}
	}
	if err != nil {
		return err
	}
	return c.mutate(c.session.Cart().Add(cart.Item{
		ProductID: p.ID,
		VariantID: c.opts.variant,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.Price,
		SalePrice: p.SalePrice,
		IsOnSale:  p.IsOnSale,
	}))
}

func (c *cli) apply(ctx context.Context, code string) error {
	applied, err := c.session.ApplyCode(ctx, code)
	if err != nil {
		var rej *checkout.RejectionError
		if errors.As(err, &rej) && rej.MinPurchase.Valid {
			return &checkout.ValidationError{Message: fmt.Sprintf("%s (mínimo $%s)", rej.Message, rej.MinPurchase.Decimal.StringFixed(2))}
		}
		return err
	}
	fmt.Fprintf(c.out, "%s: -$%s\n", applied.PromotionName, applied.Amount.StringFixed(2))
	c.printCart()
	return nil
}

func (c *cli) checkout(ctx context.Context) error {
	conf, err := c.session.Submit(ctx, checkout.Details{
		CustomerName:    c.opts.name,
		CustomerPhone:   c.opts.phone,
		Notes:           c.opts.notes,
		ShippingAddress: c.opts.address,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "¡Pedido %s confirmado!\n", conf.OrderID)
	fmt.Fprintf(c.out, "Subtotal:   $%s\n", conf.Subtotal.StringFixed(2))
	if conf.DiscountAmount.IsPositive() {
		fmt.Fprintf(c.out, "Descuento: -$%s\n", conf.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(c.out, "Total:      $%s\n", conf.Total.StringFixed(2))
	return nil
}

func (c *cli) mutate(err error) error {
	if err != nil {
		return err
	}
	c.printCart()
	return nil
}

func (c *cli) printCart() {
	lines := c.session.Cart().Lines()
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "El carrito está vacío")
		return
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, line := range lines {
		name := line.Name
		if line.VariantID != "" {
			name += " (" + line.VariantID + ")"
		}
		fmt.Fprintf(w, "%d x\t%s\t$%s\n", line.Quantity, name, line.LineTotal().StringFixed(2))
	}
	_ = w.Flush()
	fmt.Fprintf(c.out, "Subtotal: $%s\n", c.session.Cart().Subtotal().StringFixed(2))
	if d := c.session.Discount(); d != nil {
		fmt.Fprintf(c.out, "Código %s: -$%s\n", d.Code, d.Amount.StringFixed(2))
	}
	fmt.Fprintf(c.out, "Total estimado: $%s\n", c.session.DisplayTotal().StringFixed(2))
}

func usageError(msg string) error {
	return &checkout.ValidationError{Message: "uso: storefront-cli " + msg}
}
