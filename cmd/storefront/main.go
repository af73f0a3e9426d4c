package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Skotchmaster/storefront/internal/api"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/storage"
)

// Demo client: probes the session, browses the catalog, fills a cart and
// submits a checkout, printing the hosted payment URL it would redirect to.
func main() {
	username := flag.String("username", "", "account to log in with")
	password := flag.String("password", "", "password for -username")
	flag.Parse()

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(configuration.LOG_LEVEL)

	var pub events.Publisher = events.Noop{}
	if configuration.KAFKA_ADDRESS != "" {
		producer := events.NewProducer([]string{configuration.KAFKA_ADDRESS})
		defer producer.Close()
		pub = producer
	}

	client, err := api.NewClient(configuration.API_BASE_URL, logger)
	if err != nil {
		log.Fatal(err)
	}

	durable, err := storage.OpenDurable(configuration.CART_DB_PATH)
	if err != nil {
		log.Fatal(err)
	}
	defer durable.Close()

	sessions := session.NewStore(client, logger, pub)
	carts := cart.NewStore(durable, logger, pub)
	sessions.OnSignedOut(carts.Clear)

	ctx := logging.IntoContext(context.Background(), logger)

	if err := client.PrimeCSRF(ctx); err != nil {
		log.Fatalf("csrf priming failed: %v", err)
	}
	if err := sessions.Probe(ctx); err != nil {
		log.Fatal(err)
	}

	if identity := sessions.Identity(); identity != nil {
		fmt.Printf("signed in as %s\n", identity.Username)
	} else if *username != "" {
		identity, err := sessions.Login(ctx, api.Credentials{Username: *username, Password: *password})
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Printf("signed in as %s\n", identity.Username)
	} else {
		fmt.Println("browsing as guest")
	}

	products, err := client.Products(ctx)
	if err != nil {
		log.Fatalf("catalog fetch failed: %v", err)
	}
	for _, p := range products {
		fmt.Printf("#%d %s — $%.2f (%d in stock)\n", p.ID, p.Name, p.Price, p.Stock)
	}
	if len(products) == 0 {
		fmt.Println("catalog is empty, nothing to buy")
		return
	}

	if err := carts.AddItem(products[0], 1); err != nil {
		log.Fatalf("add to cart failed: %v", err)
	}
	fmt.Printf("cart total: $%.2f\n", carts.TotalPrice())

	if sessions.Identity() == nil {
		fmt.Println("log in to check out")
		return
	}

	orchestrator := checkout.NewOrchestrator(client, carts, storage.NewTab(), logger, pub)
	orchestrator.Begin()

	address := models.ShippingAddress{
		FullName:      "Demo Customer",
		StreetAddress: "1 Demo Street",
		City:          "Berlin",
		PostalCode:    "10115",
		Country:       "Germany",
		PhoneNumber:   "+4915123456789",
	}
	redirectURL, err := orchestrator.Submit(ctx, address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "checkout failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("redirect to payment page: %s\n", redirectURL)
}
