package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/identity"
	"github.com/example/storefront/internal/localstore"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/recordstore"
)

// A scripted session against a running record store: browse the catalog,
// fill the cart, sign in, walk the checkout and place an order. Useful as
// a smoke check and as a wiring example for embedders.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.App.LogLevel).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	var local localstore.KV = localstore.Noop{}
	if cfg.Local.Path != "" {
		f, err := localstore.OpenFile(cfg.Local.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Local.Path).Msg("Failed to open local store")
		}
		local = f
	}

	records := recordstore.New(cfg.API.BaseURL, cfg.API.Timeout)
	products := catalog.NewClient(records)
	ident := identity.NewManager(records, local)

	store := cart.NewStore(records, products, local, ident)
	defer store.Close()

	session := checkout.NewSession(store)
	repo := checkout.NewRepository(records, ident, session)
	submitter := checkout.NewSubmitter(records, ident, store, session)
	orders := order.NewService(records)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listing, err := products.ListProducts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list products")
	}
	if len(listing) == 0 {
		log.Fatal().Msg("Catalog is empty, seed the record store first")
	}
	log.Info().Int("products", len(listing)).Msg("Catalog loaded")

	store.AddLine(listing[0])
	store.AddLine(listing[0])
	if len(listing) > 1 {
		store.AddLine(listing[1])
	}
	log.Info().
		Int("items", store.TotalItemCount()).
		Float64("value", store.CartValue()).
		Msg("Cart filled")

	email := os.Getenv("DEMO_EMAIL")
	password := os.Getenv("DEMO_PASSWORD")
	if email == "" || password == "" {
		if err := store.Flush(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to persist cart")
		}
		log.Info().Msg("No DEMO_EMAIL/DEMO_PASSWORD set, stopping after the anonymous cart")
		return
	}

	user, err := ident.Login(ctx, email, password)
	if err != nil {
		log.Fatal().Err(err).Str("email", email).Msg("Login failed")
	}
	if err := store.Flush(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to reconcile cart")
	}
	log.Info().Str("user_id", user.ID).Int("items", store.TotalItemCount()).Msg("Signed in")

	if _, err := repo.RefreshAddresses(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load addresses")
	}
	if _, err := repo.RefreshPaymentMethods(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load payment methods")
	}
	if session.ShippingAddress() == nil {
		a, err := repo.AddAddress(ctx, checkout.ShippingAddress{
			FirstName: user.Name, LastName: "Demo",
			Street: "1 Demo St", City: "Springfield", Region: "IL",
			PostalCode: "62701", Country: "USA",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add address")
		}
		log.Info().Str("address_id", a.ID).Msg("Saved a shipping address")
	}
	if session.PaymentMethod() == nil {
		p, err := repo.AddPaymentMethod(ctx, checkout.PaymentMethod{
			Kind:  checkout.KindPayPal,
			Email: email,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add payment method")
		}
		log.Info().Str("payment_id", p.ID).Msg("Saved a payment method")
	}

	for step := session.CurrentStep() + 1; step <= checkout.StepReview; step++ {
		if !session.CanProceedToStep(step) {
			log.Fatal().Int("step", int(step)).Msg("Checkout gate rejected the step")
		}
		session.NextStep()
	}
	sum := session.Summary().Rounded()
	log.Info().
		Float64("subtotal", sum.Subtotal).
		Float64("shipping", sum.Shipping).
		Float64("tax", sum.Tax).
		Float64("total", sum.Total).
		Msg("Reviewing order")

	placed, err := submitter.Submit(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Submission failed")
	}
	log.Info().
		Str("order_id", placed.ID).
		Str("tracking_number", placed.TrackingNumber).
		Float64("total", placed.Total).
		Msg("Order placed")

	history, err := orders.ListByOwner(ctx, user.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load order history")
	}
	log.Info().Int("orders", len(history)).Msg("Order history")
}
